package envkernel

import (
	"fmt"
	"strings"
)

// Kind is the environment manager an environment belongs to.
type Kind string

const (
	Conda Kind = "conda"
	Venv  Kind = "venv"
)

// Kinds lists the supported environment kinds.
var Kinds = []Kind{Conda, Venv}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Conda, Venv:
		return k, nil
	}
	return "", &InvalidKindError{Kind: s}
}

// String implements pflag.Value.
func (k *Kind) String() string {
	return string(*k)
}

// Set implements pflag.Value.
func (k *Kind) Set(s string) error {
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Type implements pflag.Value.
func (k *Kind) Type() string {
	return "kind"
}

// Environment names a pre-existing conda env or virtualenv.
type Environment struct {
	Kind Kind
	Name string
}

func (e Environment) String() string {
	return fmt.Sprintf("%s:%s", e.Kind, e.Name)
}
