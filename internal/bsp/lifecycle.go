// SPDX-License-Identifier: MPL-2.0

package bsp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Advantech-EECC/modular-bsp-build/internal/container"
	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
	"github.com/Advantech-EECC/modular-bsp-build/internal/kas"

	"github.com/charmbracelet/log"
)

// Build builds the container image when one is defined, then runs kas build.
func (m *Manager) Build(ctx context.Context, name string, opts BuildOptions) error {
	inv, err := m.Prepare(name, PrepareOptions{Mode: kas.Container})
	if err != nil {
		return err
	}
	logger := m.logger.With("bsp", name, "id", inv.ID)
	logger.Info("building BSP", "description", inv.Target.Description)

	req := inv.Request()
	if err := m.driver.Probe(ctx, req); err != nil {
		return err
	}
	if err := m.buildImage(ctx, inv, opts.NoCache); err != nil {
		return buildFailure(name, err)
	}

	if logger.GetLevel() <= log.DebugLevel {
		dump, err := m.driver.Dump(ctx, req)
		if err != nil {
			return err
		}
		logger.Debug("configuration dump\n" + dump)
	}

	if opts.Clean {
		logger.Info("cleaning build artifacts")
		if err := m.driver.Clean(ctx, req); err != nil {
			return buildFailure(name, err)
		}
	}

	if err := m.driver.Build(ctx, req, kas.BuildOptions{Target: opts.Target, Task: opts.Task}); err != nil {
		return buildFailure(name, err)
	}

	logger.Info("BSP built successfully")
	return nil
}

// Shell opens kas shell for name, or runs command in it when set.
func (m *Manager) Shell(ctx context.Context, name, command string) error {
	inv, req, err := m.prepareShell(ctx, name)
	if err != nil {
		return err
	}
	m.logger.Info("starting shell session", "bsp", name, "id", inv.ID, "description", inv.Target.Description)
	return m.driver.Shell(ctx, req, command)
}

// Bitbake runs bitbake recipe with extra arguments inside kas shell.
func (m *Manager) Bitbake(ctx context.Context, name, recipe string, extra []string) error {
	inv, req, err := m.prepareShell(ctx, name)
	if err != nil {
		return err
	}
	m.logger.Info("running bitbake", "bsp", name, "id", inv.ID, "recipe", recipe)
	return m.driver.Bitbake(ctx, req, recipe, extra)
}

func (m *Manager) prepareShell(ctx context.Context, name string) (*Invocation, kas.Request, error) {
	inv, err := m.Prepare(name, PrepareOptions{Mode: kas.Container})
	if err != nil {
		return nil, kas.Request{}, err
	}
	req := inv.Request()
	if err := m.driver.Probe(ctx, req); err != nil {
		return nil, kas.Request{}, err
	}
	if err := m.buildImage(ctx, inv, false); err != nil {
		return nil, kas.Request{}, err
	}
	return inv, req, nil
}

// Export resolves name in a temporary build directory, runs native kas dump
// and returns its output. When output is set the dump is also written there.
func (m *Manager) Export(ctx context.Context, name, output string) (string, error) {
	tmp, err := os.MkdirTemp("", "bsp_export_"+tempDirName(name)+"_")
	if err != nil {
		return "", issue.WrapWithContext(fmt.Errorf("%w: %w", issue.ErrEnvironment, err), "create export directory", name)
	}
	defer os.RemoveAll(tmp)

	inv, err := m.Prepare(name, PrepareOptions{BuildDir: tmp, Mode: kas.Native})
	if err != nil {
		return "", err
	}
	m.logger.Info("exporting kas configuration", "bsp", name, "id", inv.ID)

	dump, err := m.driver.Dump(ctx, inv.Request())
	if err != nil {
		return "", err
	}

	if output != "" {
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return "", issue.WrapWithContext(fmt.Errorf("%w: %w", issue.ErrEnvironment, err), "write export", output)
		}
		if err := os.WriteFile(output, []byte(dump), 0o644); err != nil {
			return "", issue.WrapWithContext(fmt.Errorf("%w: %w", issue.ErrEnvironment, err), "write export", output)
		}
		m.logger.Info("configuration exported", "path", output)
	}
	return dump, nil
}

// tempDirName makes name usable as an os.MkdirTemp pattern.
func tempDirName(name string) string {
	return strings.NewReplacer("/", "_", string(filepath.Separator), "_", "*", "_").Replace(name)
}

// buildImage builds inv's container image when it has both an image and a Dockerfile.
func (m *Manager) buildImage(ctx context.Context, inv *Invocation, noCache bool) error {
	spec := inv.Container
	if !spec.HasBuildableImage() {
		return nil
	}

	engineName := inv.Target.Build.Engine
	if engineName == "" {
		engineName = m.containerEngine
	}
	engine, err := m.engines(engineName)
	if err != nil {
		return err
	}
	if version, err := engine.Version(ctx); err == nil {
		m.logger.Debug("container engine ready", "engine", engine.Name(), "version", version)
	}

	args := make([]container.BuildArg, 0, len(spec.BuildArgs))
	for _, a := range spec.BuildArgs {
		args = append(args, container.BuildArg{Name: a.Name, Value: a.Value})
	}

	contextDir := m.resolver.WorkDir
	if contextDir == "" {
		contextDir = "."
	}

	m.logger.Info("building container image", "engine", engine.Name(), "image", spec.Image, "file", spec.Dockerfile)
	return engine.Build(ctx, container.BuildOptions{
		ContextDir: contextDir,
		Dockerfile: spec.Dockerfile,
		Tag:        spec.Image,
		BuildArgs:  args,
		NoCache:    noCache,
		Stdout:     m.stdout,
		Stderr:     m.stderr,
	})
}

func buildFailure(name string, err error) error {
	return issue.NewErrorContext().
		WithOperation("build BSP").
		WithResource(name).
		WithIssue(issue.BuildFailedId).
		WithSuggestion("Run with --verbose to see the expanded kas configuration").
		WithSuggestion("Use 'bsp shell " + name + "' to reproduce the failure interactively").
		Wrap(&BuildError{Target: name, Cause: err}).
		BuildError()
}
