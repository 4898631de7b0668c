// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/Advantech-EECC/modular-bsp-build/internal/bsp"
	"github.com/Advantech-EECC/modular-bsp-build/internal/config"
	"github.com/Advantech-EECC/modular-bsp-build/internal/container"
	"github.com/Advantech-EECC/modular-bsp-build/internal/environ"
	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
	"github.com/Advantech-EECC/modular-bsp-build/internal/kas"
	"github.com/Advantech-EECC/modular-bsp-build/internal/logging"
	"github.com/Advantech-EECC/modular-bsp-build/internal/pathres"
	"github.com/Advantech-EECC/modular-bsp-build/internal/registry"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// containerSearchRoots are the mount points used when bsp itself runs in a container.
var containerSearchRoots = []string{"/repo", "/repo/examples"}

type (
	// DriverFactory creates the kas driver for one command.
	DriverFactory func(cfg *config.Config, logger *log.Logger, stdin io.Reader, stdout, stderr io.Writer) bsp.Driver

	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer; all Cobra command handlers receive an App reference.
	App struct {
		Config    config.Provider
		NewDriver DriverFactory
		Engines   bsp.EngineFactory
		// Ambient is the environment variable expansion runs against.
		Ambient map[string]string

		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer

		flags rootFlags
		// verbose is the effective verbosity once configuration is loaded.
		verbose bool
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config    config.Provider
		NewDriver DriverFactory
		Engines   bsp.EngineFactory
		Ambient   map[string]string
		Stdin     io.Reader
		Stdout    io.Writer
		Stderr    io.Writer
	}

	rootFlags struct {
		verbose    bool
		noColor    bool
		registry   string
		configPath string
	}

	// session is the per-command state derived from flags and configuration.
	session struct {
		cfg        *config.Config
		configPath string
		logger     *log.Logger
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.NewDriver == nil {
		deps.NewDriver = defaultDriver
	}
	if deps.Ambient == nil {
		deps.Ambient = environ.FromOS()
	}

	return &App{
		Config:    deps.Config,
		NewDriver: deps.NewDriver,
		Engines:   deps.Engines,
		Ambient:   deps.Ambient,
		stdin:     deps.Stdin,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

func defaultDriver(cfg *config.Config, logger *log.Logger, stdin io.Reader, stdout, stderr io.Writer) bsp.Driver {
	return kas.NewDriver(
		kas.WithCommands(cfg.Kas.Command, cfg.Kas.ContainerCommand),
		kas.WithProbeTimeout(cfg.Kas.ProbeTimeoutDuration()),
		kas.WithIO(stdin, stdout, stderr),
		kas.WithLogger(logger),
	)
}

// session loads configuration and applies it under the command-line flags.
func (a *App) session(ctx context.Context) (*session, error) {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, err
	}

	a.verbose = a.flags.verbose || cfg.UI.Verbose
	noColor := a.flags.noColor || !cfg.UI.Color
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if a.flags.registry != "" {
		cfg.Registry = a.flags.registry
	}

	logger := logging.New(logging.Options{Writer: a.stderr, Verbose: a.verbose, NoColor: noColor})
	if path != "" {
		logger.Debug("configuration loaded", "path", path)
	}
	return &session{cfg: cfg, configPath: path, logger: logger}, nil
}

// manager loads the registry named by the session and builds a Manager over it.
func (a *App) manager(ctx context.Context) (*bsp.Manager, *session, error) {
	s, err := a.session(ctx)
	if err != nil {
		return nil, nil, err
	}

	reg, err := registry.Load(s.cfg.Registry, registry.LoadOptions{Logger: s.logger})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("registry loaded", "path", reg.Path, "bsps", len(reg.Targets), "containers", len(reg.Containers))

	roots := append(append([]string{}, s.cfg.SearchPaths...), containerSearchRoots...)
	engines := a.Engines
	if engines == nil {
		engines = func(engine string) (container.Engine, error) {
			return container.NewEngine(container.EngineType(engine))
		}
	}

	m, err := bsp.NewManager(bsp.Options{
		Registry:        reg,
		Driver:          a.NewDriver(s.cfg, s.logger, a.stdin, a.stdout, a.stderr),
		Ambient:         a.Ambient,
		Resolver:        pathres.New(pathres.Options{SearchRoots: roots}),
		Engines:         engines,
		ContainerEngine: string(s.cfg.ContainerEngine),
		StrictIncludes:  s.cfg.StrictIncludes,
		Logger:          s.logger,
		Stdout:          a.stdout,
		Stderr:          a.stderr,
	})
	if err != nil {
		return nil, nil, issue.WrapWithContext(err, "initialize bsp", s.cfg.Registry)
	}
	return m, s, nil
}
