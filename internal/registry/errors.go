// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"fmt"
	"strings"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
)

type (
	// LoadError is returned when the registry file cannot be read or parsed.
	LoadError struct {
		Path string
		Err  error
	}

	// ValidationError collects every structural problem found in a registry.
	ValidationError struct {
		Path     string
		Problems []string
	}

	// TargetNotFoundError is returned when no target has the requested name.
	TargetNotFoundError struct {
		Name  string
		Known []string
	}

	// ContainerNotFoundError is returned when a target references an undefined container.
	ContainerNotFoundError struct {
		Name      string
		Target    string
		Available []string
	}

	// NoContainerError is returned when a target defines neither a container reference nor an inline one.
	NoContainerError struct {
		Target string
	}
)

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cannot parse registry: %v", e.Err)
	}
	return fmt.Sprintf("cannot read registry %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{issue.ErrConfiguration, e.Err} }

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid registry")
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
	}
	sb.WriteString(":")
	for _, p := range e.Problems {
		sb.WriteString("\n  - ")
		sb.WriteString(p)
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() error { return issue.ErrConfiguration }

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("BSP %q not found (available: %s)", e.Name, listOrNone(e.Known))
}

func (e *TargetNotFoundError) Unwrap() error { return issue.ErrConfiguration }

func (e *ContainerNotFoundError) Error() string {
	return fmt.Sprintf("container %q referenced by BSP %q not found in registry containers (available: %s)",
		e.Name, e.Target, listOrNone(e.Available))
}

func (e *ContainerNotFoundError) Unwrap() error { return issue.ErrConfiguration }

func (e *NoContainerError) Error() string {
	return fmt.Sprintf("no container configuration found for BSP %q: set build.environment.container or build.environment.docker", e.Target)
}

func (e *NoContainerError) Unwrap() error { return issue.ErrConfiguration }

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
