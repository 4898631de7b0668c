// SPDX-License-Identifier: MPL-2.0

package kasfile

import (
	"fmt"
	"strings"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
)

type (
	// ParseError is returned when a kas file is not valid YAML.
	ParseError struct {
		Path string
		Err  error
	}

	// IncludeNotFoundError is returned when an include cannot be located.
	IncludeNotFoundError struct {
		Include  string
		Parent   string
		Searched []string
	}

	// CycleError is returned in strict mode when files include each other.
	CycleError struct {
		// Chain is a closed include path: the first and last file are the same.
		Chain []string
	}
)

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse kas file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{issue.ErrConfiguration, e.Err} }

func (e *IncludeNotFoundError) Error() string {
	return fmt.Sprintf("include file not found: %s (referenced from %s; searched in: %s)",
		e.Include, e.Parent, strings.Join(e.Searched, ", "))
}

func (e *IncludeNotFoundError) Unwrap() error { return issue.ErrResolution }

func (e *CycleError) Error() string {
	return "include cycle detected: " + strings.Join(e.Chain, " -> ")
}

func (e *CycleError) Unwrap() error { return issue.ErrConfiguration }
