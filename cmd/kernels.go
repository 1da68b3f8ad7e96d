package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/kspec/cli/internal/kernelspec"
	"github.com/kspec/cli/pkg/table"
	"github.com/kspec/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// KernelRegistry is the subset of kernelspec.Registry the kernel commands use.
type KernelRegistry interface {
	List(ctx context.Context) (map[string]kernelspec.Kernel, error)
	Get(ctx context.Context, name string) (kernelspec.Kernel, error)
	Load(ctx context.Context, name string) (*kernelspec.Spec, error)
	Save(ctx context.Context, name string, spec *kernelspec.Spec) error
	UserKernelDir(ctx context.Context) (string, error)
	Invalidate()
}

// KernelsCmd handles the commands that inspect and edit installed kernels.
type KernelsCmd struct {
	registry KernelRegistry
	// confirm asks a yes/no question. Defaults to promptConfirm.
	confirm func(msg string) (bool, error)
	// lookupEnv resolves bare KEY arguments of add-env. Defaults to os.LookupEnv.
	lookupEnv func(key string) (string, bool)
}

func newKernelsCmd(cmd *cobra.Command) (KernelsCmd, error) {
	app, err := getApp(cmd)
	if err != nil {
		return KernelsCmd{}, err
	}
	return KernelsCmd{
		registry:  app.Registry,
		confirm:   promptConfirm,
		lookupEnv: os.LookupEnv,
	}, nil
}

// promptConfirm asks interactively on a terminal and reads a line from
// stdin otherwise, so scripts can pipe an answer in.
func promptConfirm(msg string) (bool, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		pterm.DefaultInteractiveConfirm.DefaultText = msg
		return pterm.DefaultInteractiveConfirm.Show()
	}
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", msg)
	return readConfirmation(os.Stdin)
}

func readConfirmation(r io.Reader) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// ListInput holds input for listing kernels.
type ListInput struct {
	Output string
}

type kernelJSON struct {
	ResourcesDir string           `json:"resources_dir"`
	Spec         *kernelspec.Spec `json:"spec"`
}

// List prints every installed kernel.
func (c KernelsCmd) List(ctx context.Context, in ListInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	kernels, err := c.registry.List(ctx)
	if err != nil {
		return err
	}

	if in.Output == "json" {
		out := make(map[string]kernelJSON, len(kernels))
		for name, k := range kernels {
			out[name] = kernelJSON{ResourcesDir: k.ResourcesDir, Spec: k.Spec}
		}
		text, err := util.FormatJSON(map[string]any{"kernelspecs": out})
		if err != nil {
			return err
		}
		pterm.Print(text)
		return nil
	}

	if len(kernels) == 0 {
		pterm.Info.Println("No kernelspecs found")
		return nil
	}

	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := pterm.TableData{{"Name", "Display Name", "Language", "Path"}}
	for _, name := range names {
		k := kernels[name]
		rows = append(rows, []string{
			name,
			util.OrDash(k.Spec.DisplayName),
			util.OrDash(k.Spec.Language()),
			k.ResourcesDir,
		})
	}
	table.PrintTableNoPad(rows, true)
	return nil
}

// ShowInput holds input for showing a kernel.
type ShowInput struct {
	Name   string
	Output string
}

// Show prints a summary of a kernel, or its kernel.json with json output.
func (c KernelsCmd) Show(ctx context.Context, in ShowInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	k, err := c.registry.Get(ctx, in.Name)
	if err != nil {
		return err
	}
	spec, err := c.registry.Load(ctx, in.Name)
	if err != nil {
		return err
	}

	if in.Output == "json" {
		data, err := kernelspec.EncodeSpec(spec)
		if err != nil {
			return err
		}
		pterm.Print(string(data))
		return nil
	}

	pterm.Printf("Kernel: %s (%s)\n", k.Name, spec.DisplayName)
	pterm.Printf("  path: %s\n", k.ResourcesDir)
	pterm.Printf("  argv: %s\n", util.ShellJoin(spec.Argv))
	if len(spec.Env) > 0 {
		pterm.Printf("  env: %s\n", strings.Join(util.FormatEnv(spec.Env), " "))
	}
	return nil
}

// LocateInput holds input for locating a kernel.
type LocateInput struct {
	Name string
}

// Locate prints the resource directory of a kernel.
func (c KernelsCmd) Locate(ctx context.Context, in LocateInput) error {
	k, err := c.registry.Get(ctx, in.Name)
	if err != nil {
		return err
	}
	pterm.Println(k.ResourcesDir)
	return nil
}

// --- Cobra wiring ---

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed kernelspecs",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var showCmd = &cobra.Command{
	Use:               "show <name>",
	Short:             "Show info about a kernelspec",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeKernelName,
	RunE:              runShow,
}

var locateCmd = &cobra.Command{
	Use:               "locate <name>",
	Short:             "Print the path of a kernelspec",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeKernelName,
	RunE:              runLocate,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(locateCmd)

	listCmd.Flags().StringP("output", "o", "", "Output format (json)")
	showCmd.Flags().StringP("output", "o", "", "Output format (json prints kernel.json)")
	showCmd.Flags().Bool("json", false, "Shorthand for --output json")
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	return c.List(cmd.Context(), ListInput{Output: output})
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		output = "json"
	}
	return c.Show(cmd.Context(), ShowInput{Name: args[0], Output: output})
}

func runLocate(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	return c.Locate(cmd.Context(), LocateInput{Name: args[0]})
}
