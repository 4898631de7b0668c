// SPDX-License-Identifier: MPL-2.0

package bsp

import (
	"errors"
	"fmt"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
)

// ErrNoTargets is returned by List for a registry without targets.
var ErrNoTargets = errors.New("no BSPs found in registry")

// BuildError is returned when the image build or the kas build of a target fails.
type BuildError struct {
	Target string
	Cause  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build of BSP %q failed: %v", e.Target, e.Cause)
}

func (e *BuildError) Unwrap() []error { return []error{issue.ErrBuild, e.Cause} }
