// SPDX-License-Identifier: MPL-2.0

package bsp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/Advantech-EECC/modular-bsp-build/internal/container"
	"github.com/Advantech-EECC/modular-bsp-build/internal/environ"
	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
	"github.com/Advantech-EECC/modular-bsp-build/internal/kas"
	"github.com/Advantech-EECC/modular-bsp-build/internal/kasfile"
	"github.com/Advantech-EECC/modular-bsp-build/internal/logging"
	"github.com/Advantech-EECC/modular-bsp-build/internal/pathres"
	"github.com/Advantech-EECC/modular-bsp-build/internal/registry"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Variables set for kas-container.
const (
	ContainerEngineKey = "KAS_CONTAINER_ENGINE"
	ContainerImageKey  = "KAS_CONTAINER_IMAGE"
)

type (
	// Driver is the subset of *kas.Driver the manager uses.
	Driver interface {
		Probe(ctx context.Context, req kas.Request) error
		Build(ctx context.Context, req kas.Request, opts kas.BuildOptions) error
		Shell(ctx context.Context, req kas.Request, command string) error
		Bitbake(ctx context.Context, req kas.Request, recipe string, extra []string) error
		Dump(ctx context.Context, req kas.Request) (string, error)
		Clean(ctx context.Context, req kas.Request) error
	}

	// EngineFactory returns a container engine for the named engine type.
	EngineFactory func(engine string) (container.Engine, error)

	// Options configures NewManager. Registry and Driver are required.
	Options struct {
		Registry *registry.Registry
		Driver   Driver
		// Ambient is the invoking environment. Defaults to the process environment.
		Ambient map[string]string
		// Resolver locates kas files. Defaults to pathres.New with no extra roots.
		Resolver *pathres.Resolver
		// Engines defaults to container.NewEngine.
		Engines EngineFactory
		// ContainerEngine is used when a target does not name one. Defaults to docker.
		ContainerEngine string
		StrictIncludes  bool
		Logger          *log.Logger
		// Stdout and Stderr receive image build output.
		Stdout io.Writer
		Stderr io.Writer
	}

	// BuildOptions configures Manager.Build.
	BuildOptions struct {
		Target string
		Task   string
		// Clean runs kas clean before building.
		Clean bool
		// NoCache disables the image build cache.
		NoCache bool
	}

	// Manager resolves targets and runs lifecycle operations on them. The
	// registry is only read, so a Manager may serve concurrent callers as long
	// as its Driver does.
	Manager struct {
		registry        *registry.Registry
		driver          Driver
		ambient         map[string]string
		resolver        *pathres.Resolver
		engines         EngineFactory
		containerEngine string
		strictIncludes  bool
		logger          *log.Logger
		stdout          io.Writer
		stderr          io.Writer
	}
)

// NewManager creates a Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("bsp manager requires a registry: %w", issue.ErrConfiguration)
	}
	if opts.Driver == nil {
		return nil, errors.New("bsp manager requires a kas driver")
	}

	m := &Manager{
		registry:        opts.Registry,
		driver:          opts.Driver,
		ambient:         opts.Ambient,
		resolver:        opts.Resolver,
		engines:         opts.Engines,
		containerEngine: opts.ContainerEngine,
		strictIncludes:  opts.StrictIncludes,
		logger:          logging.Ensure(opts.Logger),
		stdout:          opts.Stdout,
		stderr:          opts.Stderr,
	}
	if m.ambient == nil {
		m.ambient = environ.FromOS()
	}
	if m.resolver == nil {
		m.resolver = pathres.New(pathres.Options{})
	}
	if m.engines == nil {
		m.engines = func(engine string) (container.Engine, error) {
			return container.NewEngine(container.EngineType(engine))
		}
	}
	if m.containerEngine == "" {
		m.containerEngine = string(container.EngineTypeDocker)
	}
	if m.stdout == nil {
		m.stdout = os.Stdout
	}
	if m.stderr == nil {
		m.stderr = os.Stderr
	}
	return m, nil
}

// List returns the registry's targets in declaration order.
func (m *Manager) List() ([]registry.Target, error) {
	if len(m.registry.Targets) == 0 {
		return nil, issue.NewErrorContext().
			WithOperation("list BSPs").
			WithResource(m.registry.Path).
			WithSuggestion("Add entries under registry.bsp in the registry file").
			Wrap(errors.Join(issue.ErrConfiguration, ErrNoTargets)).
			BuildError()
	}
	return slices.Clone(m.registry.Targets), nil
}

// Containers returns the registry's named containers sorted by name, with Name set.
func (m *Manager) Containers() []registry.ContainerSpec {
	specs := make([]registry.ContainerSpec, 0, len(m.registry.Containers))
	for _, name := range m.registry.ContainerNames() {
		spec := m.registry.Containers[name]
		spec.Name = name
		specs = append(specs, spec)
	}
	return specs
}

// LocalImages reports, for each named container with an image, whether the
// configured engine already has that image locally.
func (m *Manager) LocalImages(ctx context.Context) (map[string]bool, error) {
	engine, err := m.engines(m.containerEngine)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(m.registry.Containers))
	for name, spec := range m.registry.Containers {
		if spec.Image == "" {
			continue
		}
		ok, err := engine.ImageExists(ctx, spec.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect image %s: %w", spec.Image, err)
		}
		present[name] = ok
	}
	return present, nil
}

// Prepare resolves name into an Invocation. It creates the build directory
// and any cache directory named by the registry environment, and otherwise
// only reads files.
func (m *Manager) Prepare(name string, opts PrepareOptions) (*Invocation, error) {
	target, err := m.registry.FindTarget(name)
	if err != nil {
		return nil, m.lookupError(err, name)
	}

	spec, err := m.registry.EffectiveContainer(target)
	if err != nil {
		return nil, m.lookupError(err, name)
	}

	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = target.Build.Path
	}
	buildDir = m.absolute(buildDir)
	m.logger.Info("preparing build directory", "path", buildDir)
	if err := pathres.EnsureDir(buildDir); err != nil {
		return nil, issue.WrapWithContext(err, "prepare build directory", buildDir)
	}

	flattener := kasfile.NewFlattener(
		m.resolver.WithBuildDir(buildDir),
		kasfile.WithStrictIncludes(m.strictIncludes),
		kasfile.WithLogger(m.logger),
	)
	files, err := flattener.Flatten(target.Build.Configuration)
	if err != nil {
		return nil, m.flattenError(err, name)
	}

	env, err := m.environment(target, spec, opts.Mode)
	if err != nil {
		return nil, err
	}

	inv := &Invocation{
		ID:        uuid.New(),
		Target:    target,
		Container: spec,
		BuildDir:  buildDir,
		Files:     files,
		Env:       env,
		Mode:      opts.Mode,
	}
	m.logger.Debug("invocation prepared", "id", inv.ID, "bsp", name, "files", len(files), "mode", opts.Mode)
	return inv, nil
}

// environment builds the driver environment: the ambient snapshot, then the
// kas-container variables, then the registry's global variables on top.
func (m *Manager) environment(target registry.Target, spec registry.ContainerSpec, mode kas.Mode) (map[string]string, error) {
	base := maps.Clone(m.ambient)
	if base == nil {
		base = make(map[string]string)
	}

	if mode == kas.Container {
		engine := target.Build.Engine
		if engine == "" {
			engine = m.containerEngine
		}
		base[ContainerEngineKey] = engine
		if spec.Image != "" {
			base[ContainerImageKey] = spec.Image
		}
	}

	expander := environ.NewExpander(m.ambient, m.logger)
	env := expander.Bind(m.registry.Environment, base)

	// Cache directories named by the registry are created up front.
	for _, v := range m.registry.Environment {
		if v.Name != environ.DownloadDir && v.Name != environ.SstateDir {
			continue
		}
		if dir := env[v.Name]; dir != "" {
			if err := pathres.EnsureDir(dir); err != nil {
				return nil, issue.WrapWithContext(err, "prepare cache directory", dir)
			}
		}
	}

	environ.Validate(env, m.logger)
	return env, nil
}

func (m *Manager) absolute(path string) string {
	path = pathres.ExpandHome(path)
	if !filepath.IsAbs(path) && m.resolver.WorkDir != "" {
		path = filepath.Join(m.resolver.WorkDir, path)
	}
	return pathres.Absolute(path)
}

func (m *Manager) lookupError(err error, name string) error {
	ctx := issue.NewErrorContext().WithOperation("resolve BSP").WithResource(name)

	var (
		targetErr    *registry.TargetNotFoundError
		containerErr *registry.ContainerNotFoundError
	)
	switch {
	case errors.As(err, &targetErr):
		ctx.WithIssue(issue.TargetNotFoundId).WithSuggestion("Run 'bsp list' to see the available BSPs")
	case errors.As(err, &containerErr):
		ctx.WithIssue(issue.ContainerNotFoundId).WithSuggestion("Run 'bsp containers' to see the defined containers")
	default:
		ctx.WithSuggestion("Set build.environment.container or build.environment.docker for this BSP")
	}
	return ctx.Wrap(err).BuildError()
}

func (m *Manager) flattenError(err error, name string) error {
	ctx := issue.NewErrorContext().WithOperation("resolve kas configuration").WithResource(name)

	var cycleErr *kasfile.CycleError
	switch {
	case errors.As(err, &cycleErr):
		ctx.WithIssue(issue.IncludeCycleId).WithSuggestion("Remove one of the includes in the cycle, or turn off strict_includes")
	case errors.Is(err, issue.ErrResolution):
		ctx.WithIssue(issue.KasFileNotFoundId).WithSuggestion("Add the directory holding the file to search_paths in the bsp config")
	}
	return ctx.Wrap(err).BuildError()
}
