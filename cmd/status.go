package cmd

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/kspec/cli/internal/config"
	"github.com/kspec/cli/internal/kernelspec"
	"github.com/kspec/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const (
	statusOK          = "ok"
	statusMissing     = "missing"
	statusFailed      = "failed"
	statusUnavailable = "unavailable"
	statusDegraded    = "degraded"
)

type statusComponent struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type statusGroup struct {
	Name       string            `json:"name"`
	Components []statusComponent `json:"components"`
}

type statusReport struct {
	Status string        `json:"status"`
	Groups []statusGroup `json:"groups"`
}

// StatusRegistry is what status needs from the kernel registry.
type StatusRegistry interface {
	List(ctx context.Context) (map[string]kernelspec.Kernel, error)
	KernelDirs(ctx context.Context) ([]string, error)
}

// StatusCmd checks that the tools kspec depends on are usable.
type StatusCmd struct {
	registry StatusRegistry
	config   *config.Config
	lookPath func(file string) (string, error)
}

// StatusInput holds input for status.
type StatusInput struct {
	Output string
}

// Run prints the health of kernel discovery, the kernel directories and
// the environment shell. It fails when kernels cannot be discovered.
func (c StatusCmd) Run(ctx context.Context, in StatusInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	report := c.check(ctx)

	if in.Output == "json" {
		text, err := util.FormatJSON(report)
		if err != nil {
			return err
		}
		pterm.Print(text)
	} else {
		printStatus(report)
	}

	if report.Status == statusUnavailable {
		return fmt.Errorf("kernel discovery is unavailable")
	}
	return nil
}

func (c StatusCmd) check(ctx context.Context) statusReport {
	report := statusReport{Status: statusOK}

	discovery := statusGroup{Name: "Discovery"}
	discovery.Components = append(discovery.Components, c.executable(c.config.Jupyter))
	kernels, err := c.registry.List(ctx)
	if err != nil {
		discovery.Components = append(discovery.Components, statusComponent{Name: "kernelspec list", Status: statusFailed, Detail: err.Error()})
		report.Status = statusUnavailable
	} else {
		discovery.Components = append(discovery.Components, statusComponent{Name: "kernelspec list", Status: statusOK, Detail: fmt.Sprintf("%d kernels", len(kernels))})
	}
	report.Groups = append(report.Groups, discovery)

	dirs := statusGroup{Name: "Kernel directories"}
	kernelDirs, err := c.registry.KernelDirs(ctx)
	if err != nil {
		dirs.Components = append(dirs.Components, statusComponent{Name: "--paths", Status: statusFailed, Detail: err.Error()})
	}
	for _, dir := range kernelDirs {
		comp := statusComponent{Name: dir, Status: statusOK}
		if !util.PathExists(dir) {
			comp.Status = statusMissing
		}
		dirs.Components = append(dirs.Components, comp)
	}
	report.Groups = append(report.Groups, dirs)

	envs := statusGroup{Name: "Environments"}
	envs.Components = append(envs.Components, c.executable(c.config.Shell))
	report.Groups = append(report.Groups, envs)

	if report.Status == statusOK {
		for _, g := range report.Groups {
			for _, comp := range g.Components {
				// a missing kernel directory is normal until something installs there
				if comp.Status == statusFailed {
					report.Status = statusDegraded
				}
			}
		}
	}
	return report
}

func (c StatusCmd) executable(name string) statusComponent {
	path, err := c.lookPath(name)
	if err != nil {
		return statusComponent{Name: name, Status: statusFailed, Detail: "not found on $PATH"}
	}
	return statusComponent{Name: name, Status: statusOK, Detail: path}
}

var statusDisplay = map[string]struct {
	label string
	rgb   pterm.RGB
}{
	statusOK:          {label: "OK", rgb: pterm.NewRGB(31, 163, 130)},
	statusDegraded:    {label: "Degraded", rgb: pterm.NewRGB(245, 158, 11)},
	statusMissing:     {label: "Missing", rgb: pterm.NewRGB(128, 128, 128)},
	statusFailed:      {label: "Failed", rgb: pterm.NewRGB(239, 68, 68)},
	statusUnavailable: {label: "Unavailable", rgb: pterm.NewRGB(239, 68, 68)},
}

func getStatusDisplay(status string) (string, pterm.RGB) {
	if d, ok := statusDisplay[status]; ok {
		return d.label, d.rgb
	}
	return "Unknown", pterm.NewRGB(128, 128, 128)
}

func coloredDot(rgb pterm.RGB) string {
	return rgb.Sprint("●")
}

func printStatus(report statusReport) {
	label, rgb := getStatusDisplay(report.Status)
	pterm.Println()
	pterm.Println("  kspec status: " + rgb.Sprint(label))

	for _, group := range report.Groups {
		pterm.Println()
		pterm.Println("  " + pterm.Bold.Sprint(group.Name))
		for _, comp := range group.Components {
			compLabel, compColor := getStatusDisplay(comp.Status)
			pterm.Printf("    %s %-12s %s  %s\n", coloredDot(compColor), compLabel, comp.Name, comp.Detail)
		}
	}
	pterm.Println()
}

// --- Cobra wiring ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that kernel discovery and environment activation work",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	c := StatusCmd{registry: app.Registry, config: app.Config, lookPath: exec.LookPath}
	return c.Run(cmd.Context(), StatusInput{Output: output})
}
