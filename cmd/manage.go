package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/kspec/cli/internal/kernelspec"
	"github.com/kspec/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// resolveDest turns a rename or clone target into a directory. A bare name
// lands in parent; anything containing a path separator is used as a path.
func resolveDest(to, parent string) (string, error) {
	if strings.ContainsRune(to, '/') || strings.ContainsRune(to, filepath.Separator) {
		return filepath.Abs(to)
	}
	if !kernelspec.ValidName(to) {
		return "", fmt.Errorf("invalid kernel name %q: use letters, digits, '.', '_' and '-'", to)
	}
	return filepath.Join(parent, to), nil
}

// RenameInput holds input for renaming a kernel.
type RenameInput struct {
	From string
	To   string
}

// Rename moves a kernel directory to a sibling named To, or to To itself
// when it is a path.
func (c KernelsCmd) Rename(ctx context.Context, in RenameInput) (string, error) {
	k, err := c.registry.Get(ctx, in.From)
	if err != nil {
		return "", err
	}
	dest, err := resolveDest(in.To, filepath.Dir(k.ResourcesDir))
	if err != nil {
		return "", err
	}
	if util.PathExists(dest) {
		return "", &kernelspec.DestinationExistsError{Path: dest}
	}

	log.Info("Renaming", "from", k.ResourcesDir, "to", dest)
	if err := util.MoveDir(k.ResourcesDir, dest); err != nil {
		return "", fmt.Errorf("renaming %s: %w", k.Name, err)
	}
	c.registry.Invalidate()

	pterm.Success.Printf("Renamed %s to %s\n", k.Name, dest)
	return dest, nil
}

// CloneInput holds input for cloning a kernel.
type CloneInput struct {
	From        string
	To          string
	DisplayName string
	User        bool
}

// Clone copies a kernel directory and gives the copy its own display name.
func (c KernelsCmd) Clone(ctx context.Context, in CloneInput) (string, error) {
	k, err := c.registry.Get(ctx, in.From)
	if err != nil {
		return "", err
	}

	parent := filepath.Dir(k.ResourcesDir)
	if in.User {
		parent, err = c.registry.UserKernelDir(ctx)
		if err != nil {
			return "", err
		}
	}
	dest, err := resolveDest(in.To, parent)
	if err != nil {
		return "", err
	}
	if util.PathExists(dest) {
		return "", &kernelspec.DestinationExistsError{Path: dest}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}

	log.Info("Cloning", "from", k.ResourcesDir, "to", dest)
	cloned := false
	defer func() {
		if cloned {
			return
		}
		if err := os.RemoveAll(dest); err != nil {
			log.Warn("Could not remove partial clone", "path", dest, "err", err)
		}
	}()
	if err := util.CopyDir(k.ResourcesDir, dest); err != nil {
		return "", fmt.Errorf("cloning %s: %w", k.Name, err)
	}

	specPath := filepath.Join(dest, kernelspec.SpecFileName)
	spec, err := kernelspec.ReadSpecFile(specPath)
	if err != nil {
		return "", err
	}
	spec.DisplayName = in.DisplayName
	if spec.DisplayName == "" {
		spec.DisplayName = filepath.Base(dest)
	}
	if err := kernelspec.WriteSpecFile(specPath, spec); err != nil {
		return "", err
	}
	cloned = true
	c.registry.Invalidate()

	pterm.Success.Printf("Cloned %s to %s (%s)\n", k.Name, dest, spec.DisplayName)
	return dest, nil
}

// RemoveInput holds input for removing a kernel.
type RemoveInput struct {
	Name  string
	Force bool
}

// Remove deletes a kernel directory after confirmation.
func (c KernelsCmd) Remove(ctx context.Context, in RemoveInput) error {
	k, err := c.registry.Get(ctx, in.Name)
	if err != nil {
		return err
	}

	if !in.Force {
		ok, err := c.confirm(fmt.Sprintf("Remove %s?", k.ResourcesDir))
		if err != nil {
			return err
		}
		if !ok {
			pterm.Info.Println("Removal cancelled")
			return nil
		}
	}

	log.Info("Removing", "path", k.ResourcesDir)
	if err := os.RemoveAll(k.ResourcesDir); err != nil {
		return fmt.Errorf("removing %s: %w", k.Name, err)
	}
	c.registry.Invalidate()

	pterm.Success.Printf("Removed %s\n", k.ResourcesDir)
	return nil
}

// --- Cobra wiring ---

var renameCmd = &cobra.Command{
	Use:               "rename <from> <to>",
	Short:             "Rename a kernelspec",
	Long:              "Move a kernelspec directory to a sibling named <to>. If <to> contains a path separator it is used as the destination path.",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeKernelName,
	RunE:              runRename,
}

var cloneCmd = &cobra.Command{
	Use:               "clone <from> <to> [display-name]",
	Short:             "Copy a kernelspec under a new name",
	Args:              cobra.RangeArgs(2, 3),
	ValidArgsFunction: completeKernelName,
	RunE:              runClone,
}

var rmCmd = &cobra.Command{
	Use:               "rm <name>",
	Short:             "Remove a kernelspec",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeKernelName,
	RunE:              runRm,
}

func init() {
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(rmCmd)

	cloneCmd.Flags().Bool("user", false, "Place the copy in the user kernel directory")
	rmCmd.Flags().BoolP("force", "f", false, "Skip confirmation")
}

func runRename(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	_, err = c.Rename(cmd.Context(), RenameInput{From: args[0], To: args[1]})
	return err
}

func runClone(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	user, _ := cmd.Flags().GetBool("user")
	in := CloneInput{From: args[0], To: args[1], User: user}
	if len(args) > 2 {
		in.DisplayName = args[2]
	}
	_, err = c.Clone(cmd.Context(), in)
	return err
}

func runRm(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	return c.Remove(cmd.Context(), RemoveInput{Name: args[0], Force: force})
}
