// Package kernelspec discovers installed Jupyter kernelspecs and reads and
// writes their kernel.json files.
package kernelspec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
)

// Kernel is one installed kernelspec.
type Kernel struct {
	Name         string
	ResourcesDir string
	Spec         *Spec
}

// SpecPath returns the path of the kernel's kernel.json.
func (k Kernel) SpecPath() string {
	return filepath.Join(k.ResourcesDir, SpecFileName)
}

// Runner runs an external program and returns what it printed on stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Output implements Runner. Anything the program wrote to stderr is folded
// into the returned error.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.Debug("Running", "cmd", name, "args", args)
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Options configures a Registry.
type Options struct {
	// Jupyter is the discovery executable. Defaults to "jupyter".
	Jupyter string
	// Runner defaults to ExecRunner.
	Runner Runner
	// ExtraDirs are kernel directories searched after everything the
	// discovery tool reports. See PathPrefixDirs.
	ExtraDirs []string
}

// Registry is the set of installed kernelspecs as reported by
// `jupyter kernelspec list`. The listing is fetched once and reused until
// Invalidate is called.
type Registry struct {
	jupyter   string
	runner    Runner
	extraDirs []string

	kernels map[string]Kernel
}

// NewRegistry returns a Registry. Nothing is run until the first lookup.
func NewRegistry(opts Options) *Registry {
	if opts.Jupyter == "" {
		opts.Jupyter = "jupyter"
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	return &Registry{
		jupyter:   opts.Jupyter,
		runner:    opts.Runner,
		extraDirs: opts.ExtraDirs,
	}
}

type kernelspecListing struct {
	Kernelspecs map[string]struct {
		ResourcesDir string          `json:"resources_dir"`
		Spec         json.RawMessage `json:"spec"`
	} `json:"kernelspecs"`
}

type pathsListing struct {
	Data []string `json:"data"`
}

// List returns every installed kernel keyed by name.
func (r *Registry) List(ctx context.Context) (map[string]Kernel, error) {
	if r.kernels != nil {
		return r.kernels, nil
	}

	args := []string{"kernelspec", "list", "--json"}
	var listing kernelspecListing
	if err := r.query(ctx, args, &listing); err != nil {
		return nil, err
	}
	if listing.Kernelspecs == nil {
		return nil, &DiscoveryError{Command: r.describe(args), Err: errors.New(`output has no "kernelspecs" key`)}
	}

	kernels := make(map[string]Kernel, len(listing.Kernelspecs))
	for name, entry := range listing.Kernelspecs {
		spec := &Spec{}
		if len(entry.Spec) > 0 && string(entry.Spec) != "null" {
			if err := json.Unmarshal(entry.Spec, spec); err != nil {
				log.Warn("Unreadable kernelspec in listing", "name", name, "err", err)
				spec = &Spec{}
			}
		}
		kernels[name] = Kernel{Name: name, ResourcesDir: entry.ResourcesDir, Spec: spec}
	}

	if len(r.extraDirs) > 0 {
		for name, k := range ScanDirs(r.extraDirs) {
			if _, ok := kernels[name]; !ok {
				log.Debug("Found kernel on PATH prefix", "name", name, "dir", k.ResourcesDir)
				kernels[name] = k
			}
		}
	}

	r.kernels = kernels
	return kernels, nil
}

// Names returns the sorted names of all installed kernels.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	kernels, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	names := lo.Keys(kernels)
	sort.Strings(names)
	return names, nil
}

// Get looks up a kernel by name.
func (r *Registry) Get(ctx context.Context, name string) (Kernel, error) {
	kernels, err := r.List(ctx)
	if err != nil {
		return Kernel{}, err
	}
	if k, ok := kernels[name]; ok {
		return k, nil
	}
	names := lo.Keys(kernels)
	sort.Strings(names)
	return Kernel{}, &NotFoundError{Name: name, Known: names}
}

// Load reads the kernel.json of the named kernel from disk.
func (r *Registry) Load(ctx context.Context, name string) (*Spec, error) {
	k, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return ReadSpecFile(k.SpecPath())
}

// Save replaces the kernel.json of the named kernel with spec.
func (r *Registry) Save(ctx context.Context, name string, spec *Spec) error {
	k, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := WriteSpecFile(k.SpecPath(), spec); err != nil {
		return err
	}
	k.Spec = spec.Clone()
	r.kernels[name] = k
	return nil
}

// Invalidate drops the cached listing so the next lookup runs discovery again.
func (r *Registry) Invalidate() {
	r.kernels = nil
}

// KernelDirs returns the directories kernelspecs are installed into, in
// priority order. The first entry is the user kernel directory.
func (r *Registry) KernelDirs(ctx context.Context) ([]string, error) {
	args := []string{"--paths", "--json"}
	var paths pathsListing
	if err := r.query(ctx, args, &paths); err != nil {
		return nil, err
	}
	if len(paths.Data) == 0 {
		return nil, &DiscoveryError{Command: r.describe(args), Err: errors.New("no data paths reported")}
	}
	dirs := lo.Map(paths.Data, func(p string, _ int) string {
		return filepath.Join(p, "kernels")
	})
	return lo.Uniq(append(dirs, r.extraDirs...)), nil
}

// UserKernelDir returns the per-user kernel directory.
func (r *Registry) UserKernelDir(ctx context.Context) (string, error) {
	dirs, err := r.KernelDirs(ctx)
	if err != nil {
		return "", err
	}
	return dirs[0], nil
}

func (r *Registry) query(ctx context.Context, args []string, v any) error {
	out, err := r.runner.Output(ctx, r.jupyter, args...)
	if err != nil {
		return &DiscoveryError{Command: r.describe(args), Err: err}
	}
	if err := json.Unmarshal(out, v); err != nil {
		return &DiscoveryError{Command: r.describe(args), Err: fmt.Errorf("malformed output: %w", err)}
	}
	return nil
}

func (r *Registry) describe(args []string) string {
	return r.jupyter + " " + strings.Join(args, " ")
}

// ScanDirs finds kernelspecs by looking for <dir>/<name>/kernel.json. When
// a name appears in more than one directory the earlier directory wins.
// Unreadable specs are skipped.
func ScanDirs(dirs []string) map[string]Kernel {
	kernels := make(map[string]Kernel)
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || !ValidName(entry.Name()) {
				continue
			}
			if _, seen := kernels[entry.Name()]; seen {
				continue
			}
			resourcesDir := filepath.Join(dir, entry.Name())
			spec, err := ReadSpecFile(filepath.Join(resourcesDir, SpecFileName))
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					log.Warn("Skipping kernelspec", "dir", resourcesDir, "err", err)
				}
				continue
			}
			abs, err := filepath.Abs(resourcesDir)
			if err != nil {
				abs = resourcesDir
			}
			kernels[entry.Name()] = Kernel{Name: entry.Name(), ResourcesDir: abs, Spec: spec}
		}
	}
	return kernels
}

// PathPrefixDirs returns <prefix>/share/jupyter/kernels for every
// <prefix>/bin entry of pathList (a $PATH-style list) where that directory
// exists. Kernels installed into other environments are found this way
// even when the discovery tool runs from an isolated environment.
func PathPrefixDirs(pathList string) []string {
	var dirs []string
	for _, bin := range filepath.SplitList(pathList) {
		if bin == "" || filepath.Base(bin) != "bin" {
			continue
		}
		dir := filepath.Join(filepath.Dir(bin), "share", "jupyter", "kernels")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return lo.Uniq(dirs)
}
