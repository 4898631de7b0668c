// SPDX-License-Identifier: MPL-2.0

package kas

import (
	"fmt"
	"strings"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
)

type (
	// UnavailableError is returned when the availability probe fails.
	UnavailableError struct {
		Command string
		Err     error
	}

	// CommandError is returned when a kas operation exits unsuccessfully.
	CommandError struct {
		Command string
		Args    []string
		// ExitCode is -1 when the process could not be started.
		ExitCode int
		// Stderr holds captured error output; empty when stderr was streamed.
		Stderr string
		Err    error
	}
)

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s is not available", e.Command)
	}
	return fmt.Sprintf("%s is not available: %v", e.Command, e.Err)
}

func (e *UnavailableError) Unwrap() []error { return []error{issue.ErrExternalTool, e.Err} }

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Command, strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " exited with code %d", e.ExitCode)
	} else {
		fmt.Fprintf(&b, " failed: %v", e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		b.WriteString(": ")
		b.WriteString(stderr)
	}
	return b.String()
}

func (e *CommandError) Unwrap() []error { return []error{issue.ErrExternalTool, e.Err} }
