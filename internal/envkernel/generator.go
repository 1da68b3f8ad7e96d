package envkernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/kspec/cli/internal/kernelspec"
	"mvdan.cc/sh/v3/syntax"
)

// ConnectionFilePlaceholder is substituted by the process that launches the
// kernel, never by this package.
const ConnectionFilePlaceholder = "{connection_file}"

// DefaultMinIpykernel is the oldest ipykernel whose kernelspec module
// accepts --name and --user.
const DefaultMinIpykernel = "4.0.0"

// Shell runs commands inside environments and renders launcher scripts.
// *Activator is the production implementation.
type Shell interface {
	Run(ctx context.Context, env Environment, command string) (string, error)
	LauncherScript(env Environment) (string, error)
	PythonCommand() string
}

// SpecStore loads and saves kernel.json by kernel name.
// *kernelspec.Registry is the production implementation.
type SpecStore interface {
	Load(ctx context.Context, name string) (*kernelspec.Spec, error)
	Save(ctx context.Context, name string, spec *kernelspec.Spec) error
	Invalidate()
}

// Generator creates kernelspecs that run a kernel inside an environment.
type Generator struct {
	Shell Shell
	Specs SpecStore
	// MinIpykernel is a semver lower bound for the ipykernel found in the
	// environment. Empty disables the check.
	MinIpykernel string
}

// MakeOptions describes the kernelspec to generate.
type MakeOptions struct {
	KernelName string
	Env        Environment
	// Prefix is where bin/jupyter-kernel-<name> is written.
	Prefix string
	// User registers the kernelspec in the per-user kernel directory.
	User bool
}

// MakeResult describes a generated kernelspec.
type MakeResult struct {
	Launcher    string
	Ipykernel   *semver.Version
	DisplayName string
}

// IpykernelVersion reports the ipykernel version installed in env.
func (g *Generator) IpykernelVersion(ctx context.Context, env Environment) (*semver.Version, error) {
	python, err := g.python()
	if err != nil {
		return nil, err
	}
	cmd := fmt.Sprintf("%s -c 'import ipykernel; print(ipykernel.__version__)'", python)
	out, err := g.Shell.Run(ctx, env, cmd)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(out)
	version, err := parseIpykernelVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("unrecognized ipykernel version %q in %s: %w", raw, env, err)
	}
	if g.MinIpykernel != "" {
		min, err := semver.NewVersion(g.MinIpykernel)
		if err != nil {
			return nil, fmt.Errorf("invalid minimum ipykernel version %q: %w", g.MinIpykernel, err)
		}
		// Pre-releases of a new enough release are accepted.
		if version.LessThan(min) {
			return nil, fmt.Errorf("ipykernel %s in %s is older than the required %s", raw, env, g.MinIpykernel)
		}
	}
	return version, nil
}

var releaseSegment = regexp.MustCompile(`^\d+(\.\d+){0,2}`)

// parseIpykernelVersion accepts semver and Python style versions
// ("7.0.0a1", "6.29.5.post1"). Python suffixes are dropped, keeping the
// release segment.
func parseIpykernelVersion(raw string) (*semver.Version, error) {
	if v, err := semver.NewVersion(raw); err == nil {
		return v, nil
	}
	release := releaseSegment.FindString(raw)
	if release == "" {
		return nil, semver.ErrInvalidSemVer
	}
	return semver.NewVersion(release)
}

func (g *Generator) python() (string, error) {
	python, err := syntax.Quote(g.Shell.PythonCommand(), syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("python command %q: %w", g.Shell.PythonCommand(), err)
	}
	return python, nil
}

// Make generates the launcher script, registers a kernelspec from inside
// the environment and points its argv at the launcher.
//
// Nothing is written if the ipykernel check fails. After that the steps are
// not rolled back: a failed registration leaves the launcher script behind,
// and the returned error says where.
func (g *Generator) Make(ctx context.Context, opts MakeOptions) (*MakeResult, error) {
	if !kernelspec.ValidName(opts.KernelName) {
		return nil, fmt.Errorf("invalid kernel name %q: use letters, digits, '.', '_' and '-'", opts.KernelName)
	}
	if _, err := ActivationCommand(opts.Env.Kind); err != nil {
		return nil, err
	}

	version, err := g.IpykernelVersion(ctx, opts.Env)
	if err != nil {
		return nil, err
	}
	log.Info("Found ipykernel", "version", version, "env", opts.Env)

	launcher, err := g.writeLauncher(opts)
	if err != nil {
		return nil, err
	}

	python, err := g.python()
	if err != nil {
		return nil, err
	}
	register := fmt.Sprintf("%s -m ipykernel.kernelspec --name %s", python, opts.KernelName)
	if opts.User {
		register += " --user"
	}
	if _, err := g.Shell.Run(ctx, opts.Env, register); err != nil {
		return nil, fmt.Errorf("registering kernelspec %s (launcher left at %s): %w", opts.KernelName, launcher, err)
	}

	g.Specs.Invalidate()
	spec, err := g.Specs.Load(ctx, opts.KernelName)
	if err != nil {
		return nil, fmt.Errorf("loading registered kernelspec %s (launcher left at %s): %w", opts.KernelName, launcher, err)
	}
	spec.Argv = []string{launcher, "-f", ConnectionFilePlaceholder}
	spec.DisplayName = fmt.Sprintf("%s (%s)", spec.DisplayName, opts.Env)
	if err := g.Specs.Save(ctx, opts.KernelName, spec); err != nil {
		return nil, fmt.Errorf("updating kernelspec %s: %w", opts.KernelName, err)
	}

	return &MakeResult{Launcher: launcher, Ipykernel: version, DisplayName: spec.DisplayName}, nil
}

func (g *Generator) writeLauncher(opts MakeOptions) (string, error) {
	script, err := g.Shell.LauncherScript(opts.Env)
	if err != nil {
		return "", err
	}
	prefix, err := filepath.Abs(opts.Prefix)
	if err != nil {
		return "", err
	}
	bin := filepath.Join(prefix, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", bin, err)
	}
	launcher := filepath.Join(bin, "jupyter-kernel-"+opts.KernelName)
	log.Info("Making executable", "path", launcher)
	if err := os.WriteFile(launcher, []byte(script), 0o755); err != nil {
		return "", fmt.Errorf("writing launcher: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(launcher, 0o755); err != nil {
		return "", err
	}
	return launcher, nil
}
