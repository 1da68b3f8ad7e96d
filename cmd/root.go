package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "kspec",
	Short: "Manage Jupyter kernelspecs",
	Long: `kspec inspects and edits installed Jupyter kernelspecs.

Rename, clone and remove kernels, edit their launch command and
environment variables, or generate a kernelspec that runs a kernel
inside a conda environment or virtualenv.

Kernels are discovered with 'jupyter kernelspec list', so the jupyter
executable must be on $PATH (or set with --jupyter).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRoot,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default $XDG_CONFIG_HOME/kspec/config.yaml)")
	rootCmd.PersistentFlags().String("jupyter", "", "Jupyter executable used to discover kernels")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log what is being changed")
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug output")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}

// setupRoot loads configuration, configures logging and output styling and
// builds the registry every subcommand shares.
func setupRoot(cmd *cobra.Command, args []string) error {
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor || os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		pterm.DisableStyling()
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	level := app.Config.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "info"
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(lvl)

	log.Debug("Loaded config", "jupyter", app.Config.Jupyter, "prefix", app.Config.Prefix)
	cmd.SetContext(withApp(cmd.Context(), app))
	return nil
}

// Execute runs the root command. Errors are printed to stderr; the caller
// only decides the exit status.
func Execute() error {
	return fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(Version),
		fang.WithCommit(Commit),
	)
}
