package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/kspec/cli/internal/config"
	"github.com/kspec/cli/internal/kernelspec"
	"github.com/spf13/cobra"
)

// App holds what every command shares within one invocation.
type App struct {
	Config   *config.Config
	Registry *kernelspec.Registry
}

type appKey struct{}

func withApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

// boundFlagKeys are config keys that a same-named flag may override.
var boundFlagKeys = []string{"jupyter", "prefix"}

func newApp(cmd *cobra.Command) (*App, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.LoadOptions{
		File:     cfgFile,
		Flags:    cmd.Flags(),
		FlagKeys: boundFlagKeys,
	})
	if err != nil {
		return nil, err
	}

	var extra []string
	if cfg.PathPrefixes {
		extra = kernelspec.PathPrefixDirs(os.Getenv("PATH"))
	}
	return &App{
		Config: cfg,
		Registry: kernelspec.NewRegistry(kernelspec.Options{
			Jupyter:   cfg.Jupyter,
			ExtraDirs: extra,
		}),
	}, nil
}

// getApp returns the App built by the root command. Commands that run
// without the root hooks (shell completion) get a fresh one.
func getApp(cmd *cobra.Command) (*App, error) {
	if ctx := cmd.Context(); ctx != nil {
		if app, ok := ctx.Value(appKey{}).(*App); ok {
			return app, nil
		}
	}
	return newApp(cmd)
}

// completeKernelName completes the first positional argument with the
// names of installed kernels.
func completeKernelName(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	app, err := getApp(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	names, err := app.Registry.Names(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var matches []string
	for _, name := range names {
		if strings.HasPrefix(name, toComplete) {
			matches = append(matches, name)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}
