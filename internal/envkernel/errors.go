package envkernel

import (
	"fmt"
)

// InvalidKindError is returned for an environment kind other than conda or venv.
type InvalidKindError struct {
	Kind string
}

func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("kind must be 'conda' or 'venv', not '%s'", e.Kind)
}

// EnvironmentCommandError is returned when a command run inside an
// activated environment exits non-zero.
type EnvironmentCommandError struct {
	Command string
	Env     Environment
	Stderr  string
	Err     error
}

func (e *EnvironmentCommandError) Error() string {
	msg := fmt.Sprintf("failed to run %q in %s env: %s", e.Command, e.Env.Kind, e.Env.Name)
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *EnvironmentCommandError) Unwrap() error {
	return e.Err
}
