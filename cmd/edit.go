package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kspec/cli/internal/kernelspec"
	"github.com/kspec/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// edit loads a kernel's spec, applies fn and saves the result if it changed.
func (c KernelsCmd) edit(ctx context.Context, name string, fn func(spec *kernelspec.Spec) error) (*kernelspec.Spec, bool, error) {
	k, err := c.registry.Get(ctx, name)
	if err != nil {
		return nil, false, err
	}
	spec, err := c.registry.Load(ctx, name)
	if err != nil {
		return nil, false, err
	}
	before := spec.Clone()
	if err := fn(spec); err != nil {
		return nil, false, err
	}
	if spec.Equal(before) {
		pterm.Info.Printf("No change to %s\n", k.SpecPath())
		return spec, false, nil
	}
	if err := c.registry.Save(ctx, name, spec); err != nil {
		return nil, false, err
	}
	return spec, true, nil
}

// ArgvInput holds input for add-argv and rm-argv.
type ArgvInput struct {
	Name string
	Args []string
}

// AddArgv appends arguments to a kernel's argv.
func (c KernelsCmd) AddArgv(ctx context.Context, in ArgvInput) error {
	spec, changed, err := c.edit(ctx, in.Name, func(spec *kernelspec.Spec) error {
		if spec.Argv == nil {
			return fmt.Errorf("kernel %s has no argv", in.Name)
		}
		spec.Argv = append(spec.Argv, in.Args...)
		return nil
	})
	if err != nil || !changed {
		return err
	}
	pterm.Success.Printf("New argv: %s\n", util.ShellJoin(spec.Argv))
	return nil
}

// RemoveArgv drops one matching entry per argument, searching from the end
// of argv so that undoing an add-argv restores the previous argv exactly.
func (c KernelsCmd) RemoveArgv(ctx context.Context, in ArgvInput) error {
	spec, changed, err := c.edit(ctx, in.Name, func(spec *kernelspec.Spec) error {
		if spec.Argv == nil {
			return fmt.Errorf("kernel %s has no argv", in.Name)
		}
		spec.Argv = removeArgs(spec.Argv, in.Args)
		return nil
	})
	if err != nil || !changed {
		return err
	}
	pterm.Success.Printf("New argv: %s\n", util.ShellJoin(spec.Argv))
	return nil
}

// argvArgs drops the "--" that ends option parsing, which add-argv and
// rm-argv otherwise see as a plain argument.
func argvArgs(args []string) []string {
	if len(args) > 0 && args[0] == "--" {
		return args[1:]
	}
	return args
}

func removeArgs(argv, args []string) []string {
	out := append([]string{}, argv...)
	for j := len(args) - 1; j >= 0; j-- {
		arg := args[j]
		if i := lo.LastIndexOf(out, arg); i >= 0 {
			out = append(out[:i], out[i+1:]...)
		}
	}
	return out
}

// AddEnvInput holds input for add-env.
type AddEnvInput struct {
	Name string
	// Pairs are KEY=VALUE or bare KEY, which reads the current environment.
	Pairs    []string
	FromFile string
}

// resolveEnv validates every pair before anything is written.
func (c KernelsCmd) resolveEnv(in AddEnvInput) (map[string]string, error) {
	values := map[string]string{}
	if in.FromFile != "" {
		fileValues, err := godotenv.Read(in.FromFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", in.FromFile, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	for _, pair := range in.Pairs {
		key, value, hasValue := strings.Cut(pair, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid environment assignment %q: key is empty", pair)
		}
		if !hasValue {
			v, ok := c.lookupEnv(key)
			if !ok {
				return nil, fmt.Errorf("environment variable %s is not set", key)
			}
			value = v
		}
		values[key] = value
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no environment variables given")
	}
	return values, nil
}

// AddEnv sets environment variables on a kernel.
func (c KernelsCmd) AddEnv(ctx context.Context, in AddEnvInput) error {
	values, err := c.resolveEnv(in)
	if err != nil {
		return err
	}
	spec, changed, err := c.edit(ctx, in.Name, func(spec *kernelspec.Spec) error {
		if spec.Env == nil {
			spec.Env = map[string]string{}
		}
		for k, v := range values {
			spec.Env[k] = v
		}
		return nil
	})
	if err != nil || !changed {
		return err
	}
	pterm.Success.Printf("Updated env of %s: %s\n", in.Name, strings.Join(util.FormatEnv(spec.Env), " "))
	return nil
}

// RemoveEnvInput holds input for rm-env.
type RemoveEnvInput struct {
	Name string
	Keys []string
}

// RemoveEnv deletes environment variables from a kernel. Absent keys are
// ignored.
func (c KernelsCmd) RemoveEnv(ctx context.Context, in RemoveEnvInput) error {
	spec, changed, err := c.edit(ctx, in.Name, func(spec *kernelspec.Spec) error {
		for _, key := range in.Keys {
			delete(spec.Env, key)
		}
		return nil
	})
	if err != nil || !changed {
		return err
	}
	pterm.Success.Printf("Updated env of %s: %s\n", in.Name, util.JoinOrDash(util.FormatEnv(spec.Env)...))
	return nil
}

// SetInput holds input for set.
type SetInput struct {
	Name  string
	Key   string
	Value string
	// JSON stores Value as raw JSON instead of a string.
	JSON bool
}

// Set assigns a top-level field of a kernel's kernel.json.
func (c KernelsCmd) Set(ctx context.Context, in SetInput) error {
	_, changed, err := c.edit(ctx, in.Name, func(spec *kernelspec.Spec) error {
		return spec.Set(in.Key, in.Value, in.JSON)
	})
	if err != nil || !changed {
		return err
	}
	pterm.Success.Printf("Set %s on %s\n", in.Key, in.Name)
	return nil
}

// --- Cobra wiring ---

var addArgvCmd = &cobra.Command{
	Use:               "add-argv <name> <args>...",
	Short:             "Append arguments to a kernel's argv",
	Long:              "Append arguments to a kernel's argv. Everything after <name> is taken as an argument, flags included.",
	Args:              cobra.MinimumNArgs(2),
	ValidArgsFunction: completeKernelName,
	RunE:              runAddArgv,
}

var rmArgvCmd = &cobra.Command{
	Use:               "rm-argv <name> <args>...",
	Short:             "Remove arguments from a kernel's argv",
	Args:              cobra.MinimumNArgs(2),
	ValidArgsFunction: completeKernelName,
	RunE:              runRmArgv,
}

var addEnvCmd = &cobra.Command{
	Use:   "add-env <name> [KEY[=VALUE]]...",
	Short: "Set environment variables for a kernel",
	Long: "Set environment variables for a kernel. A bare KEY takes its value from the current environment. " +
		"--from-file loads KEY=VALUE lines from a dotenv file; arguments override the file.",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeKernelName,
	RunE:              runAddEnv,
}

var rmEnvCmd = &cobra.Command{
	Use:               "rm-env <name> <key>...",
	Short:             "Remove environment variables from a kernel",
	Args:              cobra.MinimumNArgs(2),
	ValidArgsFunction: completeKernelName,
	RunE:              runRmEnv,
}

var setCmd = &cobra.Command{
	Use:               "set <name> <key> <value>",
	Short:             "Set a field in a kernel's kernel.json",
	Args:              cobra.ExactArgs(3),
	ValidArgsFunction: completeKernelName,
	RunE:              runSet,
}

func init() {
	rootCmd.AddCommand(addArgvCmd)
	rootCmd.AddCommand(rmArgvCmd)
	rootCmd.AddCommand(addEnvCmd)
	rootCmd.AddCommand(rmEnvCmd)
	rootCmd.AddCommand(setCmd)

	// Everything after the kernel name is an argument, so "add-argv python3 --debug" works.
	addArgvCmd.Flags().SetInterspersed(false)
	rmArgvCmd.Flags().SetInterspersed(false)

	addEnvCmd.Flags().String("from-file", "", "Load variables from a dotenv file")
	setCmd.Flags().Bool("json", false, "Parse <value> as JSON")
}

func runAddArgv(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	return c.AddArgv(cmd.Context(), ArgvInput{Name: args[0], Args: argvArgs(args[1:])})
}

func runRmArgv(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	return c.RemoveArgv(cmd.Context(), ArgvInput{Name: args[0], Args: argvArgs(args[1:])})
}

func runAddEnv(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	fromFile, _ := cmd.Flags().GetString("from-file")
	return c.AddEnv(cmd.Context(), AddEnvInput{Name: args[0], Pairs: args[1:], FromFile: fromFile})
}

func runRmEnv(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	return c.RemoveEnv(cmd.Context(), RemoveEnvInput{Name: args[0], Keys: args[1:]})
}

func runSet(cmd *cobra.Command, args []string) error {
	c, err := newKernelsCmd(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	return c.Set(cmd.Context(), SetInput{Name: args[0], Key: args[1], Value: args[2], JSON: asJSON})
}
