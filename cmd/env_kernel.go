package cmd

import (
	"context"
	"fmt"

	"github.com/kspec/cli/internal/config"
	"github.com/kspec/cli/internal/envkernel"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// KernelGenerator creates kernelspecs that run inside an environment.
type KernelGenerator interface {
	Make(ctx context.Context, opts envkernel.MakeOptions) (*envkernel.MakeResult, error)
}

// LauncherRenderer renders launcher scripts without running anything.
type LauncherRenderer interface {
	LauncherScript(env envkernel.Environment) (string, error)
}

// EnvKernelCmd handles env-kernel.
type EnvKernelCmd struct {
	generator KernelGenerator
	launcher  LauncherRenderer
}

// EnvKernelInput holds input for env-kernel.
type EnvKernelInput struct {
	Name string
	Kind envkernel.Kind
	// EnvName defaults to Name.
	EnvName string
	Prefix  string
	User    bool
	// PrintLauncher only prints the launcher script.
	PrintLauncher bool
}

// Make registers a kernelspec for a conda env or virtualenv.
func (c EnvKernelCmd) Make(ctx context.Context, in EnvKernelInput) error {
	env := envkernel.Environment{Kind: in.Kind, Name: in.EnvName}
	if env.Name == "" {
		env.Name = in.Name
	}

	if in.PrintLauncher {
		script, err := c.launcher.LauncherScript(env)
		if err != nil {
			return err
		}
		pterm.Print(script)
		return nil
	}

	if in.Prefix == "" {
		return fmt.Errorf("--prefix must not be empty")
	}

	pterm.Info.Printf("Creating kernel %s for %s\n", in.Name, env)
	res, err := c.generator.Make(ctx, envkernel.MakeOptions{
		KernelName: in.Name,
		Env:        env,
		Prefix:     in.Prefix,
		User:       in.User,
	})
	if err != nil {
		return err
	}

	pterm.Success.Printf("Created kernel %s\n", in.Name)
	pterm.Printf("  display name: %s\n", res.DisplayName)
	pterm.Printf("  launcher: %s\n", res.Launcher)
	pterm.Printf("  ipykernel: %s\n", res.Ipykernel)
	return nil
}

func newActivator(cfg *config.Config) *envkernel.Activator {
	activate := map[envkernel.Kind]string{}
	if cfg.Activate.Conda != "" {
		activate[envkernel.Conda] = cfg.Activate.Conda
	}
	if cfg.Activate.Venv != "" {
		activate[envkernel.Venv] = cfg.Activate.Venv
	}
	return &envkernel.Activator{
		Shell:    cfg.Shell,
		Python:   cfg.Python,
		Activate: activate,
	}
}

// --- Cobra wiring ---

var envKernelCmd = &cobra.Command{
	Use:   "env-kernel <name>",
	Short: "Create a kernelspec that runs in a conda env or virtualenv",
	Long: "Create a kernelspec for the environment named by --env (default <name>). " +
		"A launcher script that activates the environment is written to <prefix>/bin/jupyter-kernel-<name> " +
		"and the kernelspec is registered by the environment's own ipykernel.",
	Args: cobra.ExactArgs(1),
	RunE: runEnvKernel,
}

func init() {
	rootCmd.AddCommand(envKernelCmd)

	f := envKernelCmd.Flags()
	f.Bool("conda", false, "The environment is a conda env")
	f.Bool("venv", false, "The environment is a virtualenv managed by virtualenvwrapper")
	f.Var(new(envkernel.Kind), "kind", "Environment kind (conda or venv); defaults to config 'kind'")
	f.StringP("env", "e", "", "Environment name (defaults to <name>)")
	f.Bool("user", false, "Register the kernelspec for the current user only")
	f.String("prefix", "", "Install prefix for the launcher script (default from config, /usr/local)")
	f.Bool("print-launcher", false, "Print the launcher script and exit")
	envKernelCmd.MarkFlagsMutuallyExclusive("conda", "venv", "kind")
}

func runEnvKernel(cmd *cobra.Command, args []string) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}

	kindName := app.Config.Kind
	if fl := cmd.Flags().Lookup("kind"); fl.Changed {
		kindName = fl.Value.String()
	}
	if conda, _ := cmd.Flags().GetBool("conda"); conda {
		kindName = string(envkernel.Conda)
	}
	if venv, _ := cmd.Flags().GetBool("venv"); venv {
		kindName = string(envkernel.Venv)
	}
	var kind envkernel.Kind
	if err := kind.Set(kindName); err != nil {
		return err
	}

	envName, _ := cmd.Flags().GetString("env")
	user, _ := cmd.Flags().GetBool("user")
	printLauncher, _ := cmd.Flags().GetBool("print-launcher")

	activator := newActivator(app.Config)
	c := EnvKernelCmd{
		generator: &envkernel.Generator{
			Shell:        activator,
			Specs:        app.Registry,
			MinIpykernel: app.Config.MinIpykernel,
		},
		launcher: activator,
	}
	return c.Make(cmd.Context(), EnvKernelInput{
		Name:          args[0],
		Kind:          kind,
		EnvName:       envName,
		Prefix:        app.Config.Prefix,
		User:          user,
		PrintLauncher: printLauncher,
	})
}
