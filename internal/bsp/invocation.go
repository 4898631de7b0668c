// SPDX-License-Identifier: MPL-2.0

package bsp

import (
	"github.com/Advantech-EECC/modular-bsp-build/internal/kas"
	"github.com/Advantech-EECC/modular-bsp-build/internal/registry"

	"github.com/google/uuid"
)

type (
	// Invocation is everything the kas driver needs for one target.
	Invocation struct {
		// ID correlates the log records of one invocation.
		ID        uuid.UUID
		Target    registry.Target
		Container registry.ContainerSpec
		// BuildDir is absolute and exists.
		BuildDir string
		// Files are absolute, includes before the files that include them.
		Files []string
		Env   map[string]string
		Mode  kas.Mode
	}

	// PrepareOptions adjusts Prepare.
	PrepareOptions struct {
		// BuildDir replaces the target's build path when set.
		BuildDir string
		Mode     kas.Mode
	}
)

// Request returns the kas request for inv.
func (inv *Invocation) Request() kas.Request {
	return kas.Request{
		Files:   inv.Files,
		WorkDir: inv.BuildDir,
		Env:     inv.Env,
		Mode:    inv.Mode,
	}
}
