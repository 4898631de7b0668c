// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
)

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
)

type (
	// Engine defines the container operations used by the orchestrator.
	Engine interface {
		// Name returns the engine name (docker or podman)
		Name() string
		// Available checks if the engine is available on the system
		Available() bool
		// Version returns the engine version
		Version(ctx context.Context) (string, error)
		// Build builds an image from a Dockerfile
		Build(ctx context.Context, opts BuildOptions) error
		// ImageExists checks if an image exists
		ImageExists(ctx context.Context, image string) (bool, error)
	}

	// BuildArg is a single --build-arg. Slices of BuildArg keep declaration order.
	BuildArg struct {
		Name  string
		Value string
	}

	// BuildOptions contains options for building an image.
	BuildOptions struct {
		// ContextDir is the build context directory
		ContextDir string
		// Dockerfile is the path to the Dockerfile (relative to ContextDir)
		Dockerfile string
		// Tag is the image tag
		Tag string
		// BuildArgs are build-time variables, passed in order
		BuildArgs []BuildArg
		// NoCache disables the build cache
		NoCache bool
		// Stdout is where to write build output
		Stdout io.Writer
		// Stderr is where to write build errors
		Stderr io.Writer
	}

	// EngineType identifies the container engine type
	EngineType string

	// ErrEngineNotAvailable is returned when no usable container engine is found.
	ErrEngineNotAvailable struct {
		Engine string
		Reason string
	}
)

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

func (e *ErrEngineNotAvailable) Unwrap() error { return issue.ErrExternalTool }

// NewEngine returns the preferred engine, falling back to the other one when
// the preferred engine is not available. opts are applied to every candidate.
func NewEngine(preferredType EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	var candidates []Engine
	switch preferredType {
	case EngineTypePodman:
		candidates = []Engine{NewPodmanEngine(opts...), NewDockerEngine(opts...)}
	case EngineTypeDocker, "":
		candidates = []Engine{NewDockerEngine(opts...), NewPodmanEngine(opts...)}
	default:
		return nil, fmt.Errorf("unknown container engine type: %s: %w", preferredType, issue.ErrConfiguration)
	}

	for _, engine := range candidates {
		if engine.Available() {
			return engine, nil
		}
	}

	preferred := candidates[0].Name()
	return nil, issue.NewErrorContext().
		WithOperation("select container engine").
		WithResource(preferred).
		WithIssue(issue.ContainerEngineNotFoundId).
		WithSuggestion("Install " + preferred + " or " + candidates[1].Name() + " and make sure it is running").
		Wrap(&ErrEngineNotAvailable{
			Engine: preferred,
			Reason: preferred + " is not installed or not accessible, and " + candidates[1].Name() + " fallback is also not available",
		}).
		BuildError()
}
