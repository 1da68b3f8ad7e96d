// Package envkernel runs commands inside conda environments and virtualenvs
// and generates kernelspecs that launch a kernel from such an environment.
package envkernel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"text/template"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"
)

const (
	DefaultCondaActivate = "source activate"
	DefaultVenvActivate  = "workon"
	DefaultShell         = "bash"
	DefaultPython        = "python"
)

// ActivationCommand returns the default activation prefix for kind.
func ActivationCommand(kind Kind) (string, error) {
	switch kind {
	case Conda:
		return DefaultCondaActivate, nil
	case Venv:
		return DefaultVenvActivate, nil
	}
	return "", &InvalidKindError{Kind: string(kind)}
}

var launcherTemplate = template.Must(template.New("launcher").Parse(`#!/usr/bin/env bash
set -e
{{ .Activate }}
exec {{ .Python }} -m ipykernel "$@"
`))

// Activator activates environments in a shell session.
//
// Activation changes shell-local state (PATH and friends), so the
// activation line and the command that depends on it are fed to one shell
// process rather than run as separate processes.
type Activator struct {
	// Shell is the interpreter fed on stdin. Defaults to bash.
	Shell string
	// Python is the interpreter name inside an activated environment.
	Python string
	// Activate overrides the activation prefix per kind.
	Activate map[Kind]string
}

func (a *Activator) shell() string {
	if a.Shell == "" {
		return DefaultShell
	}
	return a.Shell
}

// PythonCommand returns the interpreter used inside activated environments.
func (a *Activator) PythonCommand() string {
	if a.Python == "" {
		return DefaultPython
	}
	return a.Python
}

// ActivationLine renders "<activate> <env name>" with the name quoted for
// the shell.
func (a *Activator) ActivationLine(env Environment) (string, error) {
	prefix, err := ActivationCommand(env.Kind)
	if err != nil {
		return "", err
	}
	if override := a.Activate[env.Kind]; override != "" {
		prefix = override
	}
	name, err := syntax.Quote(env.Name, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("environment name %q: %w", env.Name, err)
	}
	return prefix + " " + name, nil
}

// Run executes command inside env and returns its standard output.
func (a *Activator) Run(ctx context.Context, env Environment, command string) (string, error) {
	line, err := a.ActivationLine(env)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, a.shell())
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", err
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("Running in environment", "env", env, "cmd", command)
	if err := cmd.Start(); err != nil {
		return "", &EnvironmentCommandError{Command: command, Env: env, Err: err}
	}

	_, writeErr := io.WriteString(stdin, strings.Join([]string{"set -e", line, command}, "\n")+"\n")
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return "", &EnvironmentCommandError{
			Command: command,
			Env:     env,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	if writeErr != nil {
		return "", &EnvironmentCommandError{Command: command, Env: env, Err: writeErr}
	}
	return stdout.String(), nil
}

// LauncherScript renders the executable that activates env and starts an
// ipykernel in it, forwarding all arguments.
func (a *Activator) LauncherScript(env Environment) (string, error) {
	line, err := a.ActivationLine(env)
	if err != nil {
		return "", err
	}
	python, err := syntax.Quote(a.PythonCommand(), syntax.LangBash)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = launcherTemplate.Execute(&buf, struct {
		Activate string
		Python   string
	}{Activate: line, Python: python})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
