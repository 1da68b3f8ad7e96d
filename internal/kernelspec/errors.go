package kernelspec

import (
	"fmt"
	"strings"
)

// DiscoveryError is returned when the external discovery tool is missing,
// exits non-zero or prints something that is not the expected JSON.
type DiscoveryError struct {
	Command string
	Err     error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("kernel discovery failed (%s): %v", e.Command, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a kernel name is not in the registry.
// Known holds every name that was found, sorted.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e *NotFoundError) Error() string {
	known := "(none)"
	if len(e.Known) > 0 {
		known = strings.Join(e.Known, " ")
	}
	return fmt.Sprintf("no such kernel: %s\nfound kernels: %s", e.Name, known)
}

// DestinationExistsError is returned by rename and clone when the target
// path is already taken.
type DestinationExistsError struct {
	Path string
}

func (e *DestinationExistsError) Error() string {
	return fmt.Sprintf("destination already exists: %s", e.Path)
}
