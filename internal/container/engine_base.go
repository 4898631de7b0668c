// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
)

var (
	// ErrDockerfileNotFound is returned when the Dockerfile named by a container does not exist.
	ErrDockerfileNotFound = errors.New("dockerfile not found")
	// ErrContextNotFound is returned when the build context directory does not exist.
	ErrContextNotFound = errors.New("build context not found")
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the implementation shared by CLI-based container
	// engines. Engine-specific probing (Available, Version) stays on the
	// concrete types.
	BaseCLIEngine struct {
		name        string
		binaryPath  string
		execCommand ExecCommandFunc
	}

	// BuildError is returned when the engine exits non-zero while building an image.
	BuildError struct {
		Engine string
		Tag    string
		Err    error
	}
)

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s build of %s failed: %v", e.Engine, e.Tag, e.Err)
}

func (e *BuildError) Unwrap() []error { return []error{issue.ErrExternalTool, e.Err} }

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithBinaryPath overrides the binary found on PATH.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.binaryPath = path
	}
}

// WithExecCommand sets a custom command constructor, for tests.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// NewBaseCLIEngine creates a BaseCLIEngine for the binary at binaryPath.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// BuildArgs constructs arguments for an image build.
//
// Generated command: <binary> build [-f <dockerfile>] [-t <tag>] [--no-cache] [--build-arg k=v]... <context>
func (e *BaseCLIEngine) BuildArgs(opts BuildOptions) []string {
	args := []string{"build"}

	if opts.Dockerfile != "" {
		args = append(args, "-f", dockerfilePath(opts.ContextDir, opts.Dockerfile))
	}

	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}

	if opts.NoCache {
		args = append(args, "--no-cache")
	}

	for _, arg := range opts.BuildArgs {
		args = append(args, "--build-arg", arg.Name+"="+arg.Value)
	}

	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	return append(args, contextDir)
}

// ValidateBuild checks that the build context and Dockerfile exist.
func (e *BaseCLIEngine) ValidateBuild(opts BuildOptions) error {
	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	if info, err := os.Stat(contextDir); err != nil || !info.IsDir() {
		return issue.NewErrorContext().
			WithOperation("build container image").
			WithResource(contextDir).
			WithSuggestion("Run bsp from the directory that holds your Dockerfiles").
			Wrap(errors.Join(issue.ErrResolution, ErrContextNotFound)).
			BuildError()
	}

	if opts.Dockerfile == "" {
		return nil
	}
	path := dockerfilePath(opts.ContextDir, opts.Dockerfile)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return issue.NewErrorContext().
			WithOperation("build container image").
			WithResource(path).
			WithIssue(issue.DockerfileNotFoundId).
			WithSuggestion("Check the container's 'file' field in the registry").
			Wrap(errors.Join(issue.ErrResolution, ErrDockerfileNotFound)).
			BuildError()
	}
	return nil
}

// Build validates opts and builds the image, streaming output to opts.Stdout and opts.Stderr.
func (e *BaseCLIEngine) Build(ctx context.Context, opts BuildOptions) error {
	if err := e.ValidateBuild(opts); err != nil {
		return err
	}

	cmd := e.CreateCommand(ctx, e.BuildArgs(opts)...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("image build interrupted: %w", ctxErr)
		}
		return buildContainerError(e.name, opts, err)
	}

	return nil
}

// ImageExists checks if an image exists locally.
func (e *BaseCLIEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	err := e.runCommandStatus(ctx, "image", "inspect", image)
	return err == nil, nil
}

// runCommandStatus executes a command and returns only its error status.
func (e *BaseCLIEngine) runCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// dockerfilePath resolves dockerfile relative to contextDir unless it is absolute.
func dockerfilePath(contextDir, dockerfile string) string {
	if filepath.IsAbs(dockerfile) || contextDir == "" {
		return dockerfile
	}
	return filepath.Join(contextDir, dockerfile)
}

// buildContainerError creates an actionable error for container build failures.
func buildContainerError(engine string, opts BuildOptions, cause error) error {
	ctx := issue.NewErrorContext().
		WithOperation("build container image")

	switch {
	case opts.Tag != "":
		ctx.WithResource(opts.Tag)
	case opts.Dockerfile != "":
		ctx.WithResource(opts.Dockerfile)
	}

	ctx.WithSuggestion("Check Dockerfile syntax for errors")
	ctx.WithSuggestion("Ensure base images are available (try: " + engine + " pull <base-image>)")
	ctx.WithSuggestion("Run with --verbose to see the exact build command")

	return ctx.Wrap(&BuildError{Engine: engine, Tag: opts.Tag, Err: cause}).BuildError()
}
