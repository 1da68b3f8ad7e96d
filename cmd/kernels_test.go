package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/kspec/cli/internal/kernelspec"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const python3Spec = `{
 "argv": ["python3", "-m", "ipykernel_launcher", "-f", "{connection_file}"],
 "display_name": "Python 3",
 "language": "python",
 "metadata": {"debugger": true}
}
`

// setupStdoutCapture routes pterm output into a buffer with styling off.
func setupStdoutCapture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	pterm.SetDefaultOutput(&buf)
	pterm.DisableStyling()
	t.Cleanup(func() {
		pterm.SetDefaultOutput(os.Stdout)
		pterm.EnableStyling()
	})
	return &buf
}

// FakeRegistry serves kernels from directories on disk instead of asking
// jupyter.
type FakeRegistry struct {
	Dirs        []string
	UserDir     string
	Invalidated int
	GetFunc     func(name string) (kernelspec.Kernel, error)
}

func (f *FakeRegistry) List(ctx context.Context) (map[string]kernelspec.Kernel, error) {
	return kernelspec.ScanDirs(f.Dirs), nil
}

func (f *FakeRegistry) Get(ctx context.Context, name string) (kernelspec.Kernel, error) {
	if f.GetFunc != nil {
		return f.GetFunc(name)
	}
	kernels := kernelspec.ScanDirs(f.Dirs)
	k, ok := kernels[name]
	if !ok {
		known := make([]string, 0, len(kernels))
		for n := range kernels {
			known = append(known, n)
		}
		sort.Strings(known)
		return kernelspec.Kernel{}, &kernelspec.NotFoundError{Name: name, Known: known}
	}
	return k, nil
}

func (f *FakeRegistry) Load(ctx context.Context, name string) (*kernelspec.Spec, error) {
	k, err := f.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return kernelspec.ReadSpecFile(k.SpecPath())
}

func (f *FakeRegistry) Save(ctx context.Context, name string, spec *kernelspec.Spec) error {
	k, err := f.Get(ctx, name)
	if err != nil {
		return err
	}
	return kernelspec.WriteSpecFile(k.SpecPath(), spec)
}

func (f *FakeRegistry) UserKernelDir(ctx context.Context) (string, error) {
	return f.UserDir, nil
}

func (f *FakeRegistry) Invalidate() {
	f.Invalidated++
}

type kernelsFixture struct {
	cmd      KernelsCmd
	registry *FakeRegistry
	dir      string
	answers  []bool
	prompts  []string
}

func newKernelsFixture(t *testing.T) *kernelsFixture {
	t.Helper()
	root := t.TempDir()
	fx := &kernelsFixture{
		dir: filepath.Join(root, "kernels"),
		registry: &FakeRegistry{
			UserDir: filepath.Join(root, "user", "kernels"),
		},
	}
	require.NoError(t, os.MkdirAll(fx.dir, 0o755))
	fx.registry.Dirs = []string{fx.dir, fx.registry.UserDir}
	fx.cmd = KernelsCmd{
		registry: fx.registry,
		confirm: func(msg string) (bool, error) {
			fx.prompts = append(fx.prompts, msg)
			if len(fx.answers) == 0 {
				return false, nil
			}
			ans := fx.answers[0]
			fx.answers = fx.answers[1:]
			return ans, nil
		},
		lookupEnv: func(key string) (string, bool) {
			if key == "FROM_PROCESS" {
				return "inherited", true
			}
			return "", false
		},
	}
	return fx
}

func (fx *kernelsFixture) addKernel(t *testing.T, name, content string) string {
	t.Helper()
	kdir := filepath.Join(fx.dir, name)
	require.NoError(t, os.MkdirAll(kdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(kdir, kernelspec.SpecFileName), []byte(content), 0o644))
	return kdir
}

func (fx *kernelsFixture) load(t *testing.T, name string) *kernelspec.Spec {
	t.Helper()
	spec, err := fx.registry.Load(context.Background(), name)
	require.NoError(t, err)
	return spec
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestKernelsList_Table(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "python3", python3Spec)
	fx.addKernel(t, "ir", `{"argv": ["R"], "display_name": "R", "language": "R"}`)

	require.NoError(t, fx.cmd.List(context.Background(), ListInput{}))

	out := buf.String()
	assert.Contains(t, out, "python3")
	assert.Contains(t, out, "Python 3")
	assert.Contains(t, out, "ir")
	assert.Less(t, strings.Index(out, "ir"), strings.Index(out, "python3"))
}

func TestKernelsList_JSON(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	kdir := fx.addKernel(t, "python3", python3Spec)

	require.NoError(t, fx.cmd.List(context.Background(), ListInput{Output: "json"}))

	out := buf.String()
	assert.Contains(t, out, `"kernelspecs"`)
	assert.Contains(t, out, `"resources_dir": "`+kdir+`"`)
	assert.Contains(t, out, `"display_name": "Python 3"`)
}

func TestKernelsList_Empty(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)

	require.NoError(t, fx.cmd.List(context.Background(), ListInput{}))
	assert.Contains(t, buf.String(), "No kernelspecs found")
}

func TestKernelsList_UnsupportedOutput(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)

	err := fx.cmd.List(context.Background(), ListInput{Output: "yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported --output value")
}

func TestKernelsShow(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	kdir := fx.addKernel(t, "python3", python3Spec)

	require.NoError(t, fx.cmd.Show(context.Background(), ShowInput{Name: "python3"}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Kernel: python3 (Python 3)", lines[0])
	assert.Equal(t, "  path: "+kdir, lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "  argv: python3 -m ipykernel_launcher -f "), lines[2])
	assert.Contains(t, lines[2], "{connection_file}")
}

func TestKernelsShow_Env(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "py", `{"argv": ["python"], "display_name": "Py", "env": {"B": "two words", "A": "1"}}`)

	require.NoError(t, fx.cmd.Show(context.Background(), ShowInput{Name: "py"}))
	assert.Contains(t, buf.String(), "  env: A=1 B='two words'\n")
}

func TestKernelsShow_JSON(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "python3", python3Spec)

	require.NoError(t, fx.cmd.Show(context.Background(), ShowInput{Name: "python3", Output: "json"}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{\n \"argv\": ["), out)
	assert.Contains(t, out, `"metadata": {`)
	assert.Contains(t, out, `"debugger": true`)
}

func TestKernelsLocate(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	kdir := fx.addKernel(t, "python3", python3Spec)

	require.NoError(t, fx.cmd.Locate(context.Background(), LocateInput{Name: "python3"}))
	assert.Equal(t, kdir+"\n", buf.String())
}

func TestKernels_NotFoundLeavesFilesAlone(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	kdir := fx.addKernel(t, "python3", python3Spec)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"show", func() error { return fx.cmd.Show(ctx, ShowInput{Name: "missing"}) }},
		{"locate", func() error { return fx.cmd.Locate(ctx, LocateInput{Name: "missing"}) }},
		{"add-argv", func() error { return fx.cmd.AddArgv(ctx, ArgvInput{Name: "missing", Args: []string{"-x"}}) }},
		{"rm-argv", func() error { return fx.cmd.RemoveArgv(ctx, ArgvInput{Name: "missing", Args: []string{"-x"}}) }},
		{"add-env", func() error { return fx.cmd.AddEnv(ctx, AddEnvInput{Name: "missing", Pairs: []string{"A=1"}}) }},
		{"rm-env", func() error { return fx.cmd.RemoveEnv(ctx, RemoveEnvInput{Name: "missing", Keys: []string{"A"}}) }},
		{"set", func() error { return fx.cmd.Set(ctx, SetInput{Name: "missing", Key: "display_name", Value: "x"}) }},
		{"rename", func() error {
			_, err := fx.cmd.Rename(ctx, RenameInput{From: "missing", To: "other"})
			return err
		}},
		{"clone", func() error {
			_, err := fx.cmd.Clone(ctx, CloneInput{From: "missing", To: "other"})
			return err
		}},
		{"rm", func() error { return fx.cmd.Remove(ctx, RemoveInput{Name: "missing", Force: true}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var nf *kernelspec.NotFoundError
			require.True(t, errors.As(err, &nf), "got %v", err)
			assert.Equal(t, []string{"python3"}, nf.Known)

			entries, err := os.ReadDir(fx.dir)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, python3Spec, string(readFile(t, filepath.Join(kdir, kernelspec.SpecFileName))))
		})
	}
}

func TestKernelsArgv_RoundTrip(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "python3", python3Spec)
	ctx := context.Background()
	original := fx.load(t, "python3").Argv

	require.NoError(t, fx.cmd.AddArgv(ctx, ArgvInput{Name: "python3", Args: []string{"--debug"}}))
	assert.Equal(t, append(append([]string{}, original...), "--debug"), fx.load(t, "python3").Argv)
	assert.Contains(t, buf.String(), "New argv: python3 -m ipykernel_launcher -f ")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), " --debug"), buf.String())

	require.NoError(t, fx.cmd.RemoveArgv(ctx, ArgvInput{Name: "python3", Args: []string{"--debug"}}))
	assert.Equal(t, original, fx.load(t, "python3").Argv)
}

func TestKernelsArgv_RoundTripWithRepeatedArgs(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "k", `{"argv": ["run", "-f", "x", "-f"], "display_name": "K"}`)
	ctx := context.Background()
	original := fx.load(t, "k").Argv

	added := []string{"-f", "y", "run"}
	require.NoError(t, fx.cmd.AddArgv(ctx, ArgvInput{Name: "k", Args: added}))
	require.NoError(t, fx.cmd.RemoveArgv(ctx, ArgvInput{Name: "k", Args: added}))
	assert.Equal(t, original, fx.load(t, "k").Argv)
}

func TestKernelsRemoveArgv_NoMatch(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	kdir := fx.addKernel(t, "python3", python3Spec)

	require.NoError(t, fx.cmd.RemoveArgv(context.Background(), ArgvInput{Name: "python3", Args: []string{"--nope"}}))
	assert.Contains(t, buf.String(), "No change to")
	assert.Equal(t, python3Spec, string(readFile(t, filepath.Join(kdir, kernelspec.SpecFileName))))
}

func TestKernelsAddArgv_NoArgv(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "bare", `{"display_name": "Bare"}`)

	err := fx.cmd.AddArgv(context.Background(), ArgvInput{Name: "bare", Args: []string{"-x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no argv")
}

func TestRemoveArgs(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		args []string
		want []string
	}{
		{"single", []string{"a", "b"}, []string{"b"}, []string{"a"}},
		{"last occurrence", []string{"x", "a", "x"}, []string{"x"}, []string{"x", "a"}},
		{"one per arg", []string{"x", "x", "x"}, []string{"x", "x"}, []string{"x"}},
		{"missing", []string{"a"}, []string{"z"}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, removeArgs(tt.argv, tt.args))
		})
	}
}

func TestArgvArgs(t *testing.T) {
	assert.Equal(t, []string{"--debug"}, argvArgs([]string{"--", "--debug"}))
	assert.Equal(t, []string{"--debug", "--"}, argvArgs([]string{"--debug", "--"}))
	assert.Empty(t, argvArgs(nil))
}

func TestKernelsEnv_RoundTrip(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "py", `{"argv": ["python"], "display_name": "Py", "env": {"KEEP": "1"}}`)
	ctx := context.Background()

	require.NoError(t, fx.cmd.AddEnv(ctx, AddEnvInput{Name: "py", Pairs: []string{"A=x=y", "FROM_PROCESS"}}))
	assert.Equal(t, map[string]string{"KEEP": "1", "A": "x=y", "FROM_PROCESS": "inherited"}, fx.load(t, "py").Env)

	require.NoError(t, fx.cmd.RemoveEnv(ctx, RemoveEnvInput{Name: "py", Keys: []string{"A", "FROM_PROCESS"}}))
	assert.Equal(t, map[string]string{"KEEP": "1"}, fx.load(t, "py").Env)
}

func TestKernelsAddEnv_UnsetVariableWritesNothing(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	kdir := fx.addKernel(t, "python3", python3Spec)

	err := fx.cmd.AddEnv(context.Background(), AddEnvInput{Name: "python3", Pairs: []string{"A=1", "NOT_SET_ANYWHERE"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_SET_ANYWHERE is not set")
	assert.Equal(t, python3Spec, string(readFile(t, filepath.Join(kdir, kernelspec.SpecFileName))))
}

func TestKernelsAddEnv_FromFile(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "python3", python3Spec)
	envFile := filepath.Join(t.TempDir(), "kernel.env")
	require.NoError(t, os.WriteFile(envFile, []byte("# comment\nA=from-file\nB=\"quoted value\"\n"), 0o644))

	err := fx.cmd.AddEnv(context.Background(), AddEnvInput{Name: "python3", Pairs: []string{"A=override"}, FromFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "override", "B": "quoted value"}, fx.load(t, "python3").Env)
}

func TestKernelsAddEnv_Invalid(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "python3", python3Spec)
	ctx := context.Background()

	err := fx.cmd.AddEnv(ctx, AddEnvInput{Name: "python3", Pairs: []string{"=value"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key is empty")

	err = fx.cmd.AddEnv(ctx, AddEnvInput{Name: "python3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no environment variables given")

	err = fx.cmd.AddEnv(ctx, AddEnvInput{Name: "python3", FromFile: filepath.Join(t.TempDir(), "missing.env")})
	require.Error(t, err)
}

func TestKernelsAddEnv_SameValueIsNoChange(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "py", `{"argv": ["python"], "display_name": "Py", "env": {"A": "1"}}`)

	require.NoError(t, fx.cmd.AddEnv(context.Background(), AddEnvInput{Name: "py", Pairs: []string{"A=1"}}))
	assert.Contains(t, buf.String(), "No change to")
}

func TestKernelsRemoveEnv_AbsentKeyIsNoop(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	kdir := fx.addKernel(t, "python3", python3Spec)

	require.NoError(t, fx.cmd.RemoveEnv(context.Background(), RemoveEnvInput{Name: "python3", Keys: []string{"NOPE"}}))
	assert.Contains(t, buf.String(), "No change to")
	assert.Equal(t, python3Spec, string(readFile(t, filepath.Join(kdir, kernelspec.SpecFileName))))
}

func TestKernelsSet_ThenShow(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "mykernel", python3Spec)
	ctx := context.Background()

	require.NoError(t, fx.cmd.Set(ctx, SetInput{Name: "mykernel", Key: "display_name", Value: "My Kernel"}))
	buf.Reset()
	require.NoError(t, fx.cmd.Show(ctx, ShowInput{Name: "mykernel"}))

	assert.True(t, strings.HasPrefix(buf.String(), "Kernel: mykernel (My Kernel)\n"), buf.String())
}

func TestKernelsSet_PreservesUnknownKeys(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "python3", python3Spec)

	require.NoError(t, fx.cmd.Set(context.Background(), SetInput{Name: "python3", Key: "display_name", Value: "Renamed"}))

	spec := fx.load(t, "python3")
	assert.Equal(t, "Renamed", spec.DisplayName)
	assert.Equal(t, `"python"`, string(spec.Extra["language"]))
	assert.JSONEq(t, `{"debugger": true}`, string(spec.Extra["metadata"]))
}

func TestKernelsSet_JSONAndNoChange(t *testing.T) {
	buf := setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "python3", python3Spec)
	ctx := context.Background()

	in := SetInput{Name: "python3", Key: "interrupt_mode", Value: `"message"`, JSON: true}
	require.NoError(t, fx.cmd.Set(ctx, in))
	assert.Equal(t, `"message"`, string(fx.load(t, "python3").Extra["interrupt_mode"]))

	buf.Reset()
	require.NoError(t, fx.cmd.Set(ctx, in))
	assert.Contains(t, buf.String(), "No change to")

	err := fx.cmd.Set(ctx, SetInput{Name: "python3", Key: "argv", Value: "not json"})
	require.Error(t, err)
}

func TestKernelsRename_RoundTrip(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	kdir := fx.addKernel(t, "a", python3Spec)
	before := readFile(t, filepath.Join(kdir, kernelspec.SpecFileName))
	ctx := context.Background()

	dest, err := fx.cmd.Rename(ctx, RenameInput{From: "a", To: "b"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.dir, "b"), dest)
	assert.NoDirExists(t, kdir)

	_, err = fx.cmd.Rename(ctx, RenameInput{From: "b", To: "a"})
	require.NoError(t, err)
	assert.Equal(t, before, readFile(t, filepath.Join(kdir, kernelspec.SpecFileName)))
	assert.Positive(t, fx.registry.Invalidated)
}

func TestKernelsRename_DestinationExists(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	adir := fx.addKernel(t, "a", python3Spec)
	fx.addKernel(t, "b", `{"argv": ["b"], "display_name": "B"}`)

	_, err := fx.cmd.Rename(context.Background(), RenameInput{From: "a", To: "b"})
	var exists *kernelspec.DestinationExistsError
	require.True(t, errors.As(err, &exists), "got %v", err)
	assert.Equal(t, filepath.Join(fx.dir, "b"), exists.Path)
	assert.DirExists(t, adir)
	assert.Equal(t, `{"argv": ["b"], "display_name": "B"}`, string(readFile(t, filepath.Join(fx.dir, "b", kernelspec.SpecFileName))))
}

func TestKernelsRename_ToPath(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "a", python3Spec)
	target := filepath.Join(t.TempDir(), "elsewhere", "moved")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))

	dest, err := fx.cmd.Rename(context.Background(), RenameInput{From: "a", To: target})
	require.NoError(t, err)
	assert.Equal(t, target, dest)
	assert.FileExists(t, filepath.Join(target, kernelspec.SpecFileName))
}

func TestKernelsRename_InvalidName(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "a", python3Spec)

	_, err := fx.cmd.Rename(context.Background(), RenameInput{From: "a", To: "bad name"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid kernel name")
}

func TestKernelsClone(t *testing.T) {
	tests := []struct {
		name        string
		display     string
		wantDisplay string
	}{
		{"default display name", "", "b"},
		{"explicit display name", "Kernel B", "Kernel B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupStdoutCapture(t)
			fx := newKernelsFixture(t)
			adir := fx.addKernel(t, "a", python3Spec)
			ctx := context.Background()

			dest, err := fx.cmd.Clone(ctx, CloneInput{From: "a", To: "b", DisplayName: tt.display})
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(fx.dir, "b"), dest)

			b := fx.load(t, "b")
			assert.Equal(t, tt.wantDisplay, b.DisplayName)
			assert.Equal(t, fx.load(t, "a").Argv, b.Argv)

			require.NoError(t, fx.cmd.AddArgv(ctx, ArgvInput{Name: "b", Args: []string{"--debug"}}))
			assert.Equal(t, python3Spec, string(readFile(t, filepath.Join(adir, kernelspec.SpecFileName))))
		})
	}
}

func TestKernelsClone_User(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "a", python3Spec)

	dest, err := fx.cmd.Clone(context.Background(), CloneInput{From: "a", To: "mine", User: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.registry.UserDir, "mine"), dest)
	assert.Equal(t, "mine", fx.load(t, "mine").DisplayName)
}

func TestKernelsClone_DestinationExists(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	fx.addKernel(t, "a", python3Spec)
	fx.addKernel(t, "b", `{"argv": ["b"], "display_name": "B"}`)

	_, err := fx.cmd.Clone(context.Background(), CloneInput{From: "a", To: "b"})
	var exists *kernelspec.DestinationExistsError
	require.True(t, errors.As(err, &exists), "got %v", err)
	assert.Equal(t, "B", fx.load(t, "b").DisplayName)
}

func TestKernelsClone_RemovesPartialCopy(t *testing.T) {
	setupStdoutCapture(t)
	fx := newKernelsFixture(t)
	src := filepath.Join(t.TempDir(), "broken")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "logo-64x64.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, kernelspec.SpecFileName), []byte(`{"argv": [`), 0o644))
	fx.registry.GetFunc = func(name string) (kernelspec.Kernel, error) {
		return kernelspec.Kernel{Name: name, ResourcesDir: src}, nil
	}

	_, err := fx.cmd.Clone(context.Background(), CloneInput{From: "broken", To: "copy"})
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(filepath.Dir(src), "copy"))
	assert.DirExists(t, src)
	assert.Zero(t, fx.registry.Invalidated)
}

func TestKernelsRemove(t *testing.T) {
	tests := []struct {
		name        string
		force       bool
		answers     []bool
		wantRemoved bool
		wantPrompts int
		wantOutput  string
	}{
		{"force skips prompt", true, nil, true, 0, "Removed"},
		{"confirmed", false, []bool{true}, true, 1, "Removed"},
		{"declined", false, []bool{false}, false, 1, "Removal cancelled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := setupStdoutCapture(t)
			fx := newKernelsFixture(t)
			kdir := fx.addKernel(t, "mykernel", python3Spec)
			fx.answers = tt.answers

			require.NoError(t, fx.cmd.Remove(context.Background(), RemoveInput{Name: "mykernel", Force: tt.force}))

			assert.Len(t, fx.prompts, tt.wantPrompts)
			assert.Contains(t, buf.String(), tt.wantOutput)
			if tt.wantRemoved {
				assert.NoDirExists(t, kdir)
				err := fx.cmd.Locate(context.Background(), LocateInput{Name: "mykernel"})
				var nf *kernelspec.NotFoundError
				assert.True(t, errors.As(err, &nf))
			} else {
				assert.DirExists(t, kdir)
			}
		})
	}
}

func TestReadConfirmation(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yep\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := readConfirmation(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
