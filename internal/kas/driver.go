// SPDX-License-Identifier: MPL-2.0

package kas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Advantech-EECC/modular-bsp-build/internal/environ"
	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
	"github.com/Advantech-EECC/modular-bsp-build/internal/logging"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"
)

const (
	DefaultCommand          = "kas"
	DefaultContainerCommand = "kas-container"
	DefaultProbeTimeout     = 30 * time.Second

	// FileSeparator joins configuration files on the kas command line.
	FileSeparator = ":"
)

const (
	// Container runs kas-container, which starts the build inside an image.
	Container Mode = iota
	// Native runs a kas installed on the host.
	Native
)

// importantKeys are logged before each command.
var importantKeys = []string{environ.DownloadDir, environ.SstateDir, environ.GitConfigKey}

type (
	// Mode selects between native kas and kas-container.
	Mode int

	// ExecCommandFunc is the function signature for creating exec.Cmd.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Request is everything a kas invocation needs.
	Request struct {
		// Files are the resolved configuration files, includes first.
		Files []string
		// WorkDir is the build directory kas runs in.
		WorkDir string
		// Env is the complete environment of the kas process.
		Env  map[string]string
		Mode Mode
	}

	// BuildOptions narrows a build to one target or task.
	BuildOptions struct {
		Target string
		Task   string
	}

	// Option configures a Driver.
	Option func(*Driver)

	// Driver runs kas commands.
	Driver struct {
		command          string
		containerCommand string
		probeTimeout     time.Duration
		stdin            io.Reader
		stdout           io.Writer
		stderr           io.Writer
		logger           *log.Logger
		execCommand      ExecCommandFunc

		mu     sync.Mutex
		probed map[string]error
	}
)

func (m Mode) String() string {
	if m == Native {
		return "native"
	}
	return "container"
}

// WithCommands overrides the native and container binaries. Empty values keep the defaults.
func WithCommands(native, container string) Option {
	return func(d *Driver) {
		if native != "" {
			d.command = native
		}
		if container != "" {
			d.containerCommand = container
		}
	}
}

// WithProbeTimeout bounds the availability probe. Non-positive values keep the default.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(d *Driver) {
		if timeout > 0 {
			d.probeTimeout = timeout
		}
	}
}

// WithIO sets the streams attached to interactive and streaming commands.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(d *Driver) {
		d.stdin = stdin
		d.stdout = stdout
		d.stderr = stderr
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithExecCommand sets a custom command constructor, for tests.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(d *Driver) {
		d.execCommand = fn
	}
}

// NewDriver creates a Driver attached to the process stdio.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		command:          DefaultCommand,
		containerCommand: DefaultContainerCommand,
		probeTimeout:     DefaultProbeTimeout,
		stdin:            os.Stdin,
		stdout:           os.Stdout,
		stderr:           os.Stderr,
		execCommand:      exec.CommandContext,
		probed:           make(map[string]error),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.Ensure(d.logger).With("component", "kas")
	return d
}

// Binary returns the command used for mode.
func (d *Driver) Binary(mode Mode) string {
	if mode == Native {
		return d.command
	}
	return d.containerCommand
}

// Probe checks that the kas binary for req.Mode runs. Native kas must answer
// --version successfully; kas-container counts as available when --help exits
// zero or prints anything, since some versions exit non-zero for --help.
func (d *Driver) Probe(ctx context.Context, req Request) error {
	bin := d.Binary(req.Mode)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.probed[bin]; ok {
		return err
	}

	err := d.probe(ctx, bin, req)
	if err != nil {
		err = issue.NewErrorContext().
			WithOperation("check kas availability").
			WithResource(bin).
			WithIssue(issue.KasNotAvailableId).
			WithSuggestion("Install kas with: pip install kas").
			WithSuggestion("Set kas.command or kas.container_command in the bsp config to a different binary").
			Wrap(err).
			BuildError()
	}
	d.probed[bin] = err
	return err
}

func (d *Driver) probe(ctx context.Context, bin string, req Request) error {
	ctx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	flag := "--help"
	if req.Mode == Native {
		flag = "--version"
	}

	cmd := d.execCommand(ctx, bin, flag)
	cmd.Env = append(cmd.Env, environ.List(req.Env)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &UnavailableError{Command: bin, Err: fmt.Errorf("probe timed out after %s: %w", d.probeTimeout, ctxErr)}
	}
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if req.Mode == Container && errors.As(err, &exitErr) && (stdout.Len() > 0 || stderr.Len() > 0) {
		d.logger.Debug("kas-container probe exited non-zero with output", "code", exitErr.ExitCode())
		return nil
	}
	return &UnavailableError{Command: bin, Err: err}
}

// Build runs kas build.
func (d *Driver) Build(ctx context.Context, req Request, opts BuildOptions) error {
	args, err := fileArgs("build", req)
	if err != nil {
		return err
	}
	if opts.Target != "" {
		args = append(args, "--target", opts.Target)
	}
	if opts.Task != "" {
		args = append(args, "--task", opts.Task)
	}
	_, err = d.run(ctx, req, false, args)
	return err
}

// Shell runs kas shell. With an empty command the session is interactive.
func (d *Driver) Shell(ctx context.Context, req Request, command string) error {
	args, err := fileArgs("shell", req)
	if err != nil {
		return err
	}
	if command != "" {
		args = append(args, "--command", command)
		d.logger.Info("executing command in kas shell", "command", command)
	} else {
		d.logger.Info("starting interactive kas shell, type 'exit' to leave")
	}
	_, err = d.run(ctx, req, false, args)
	return err
}

// Bitbake runs bitbake for recipe inside kas shell. recipe and extra are
// quoted so each keeps its boundaries in the shell command line.
func (d *Driver) Bitbake(ctx context.Context, req Request, recipe string, extra []string) error {
	words := make([]string, 0, len(extra)+2)
	words = append(words, "bitbake")
	for _, arg := range append([]string{recipe}, extra...) {
		quoted, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			return fmt.Errorf("invalid bitbake argument %q: %w", arg, errors.Join(issue.ErrConfiguration, err))
		}
		words = append(words, quoted)
	}
	return d.Shell(ctx, req, strings.Join(words, " "))
}

// Dump runs kas dump and returns the expanded configuration.
func (d *Driver) Dump(ctx context.Context, req Request) (string, error) {
	args, err := fileArgs("dump", req)
	if err != nil {
		return "", err
	}
	return d.run(ctx, req, true, args)
}

// Clean runs kas clean, removing build artifacts but keeping caches.
func (d *Driver) Clean(ctx context.Context, req Request) error {
	args, err := fileArgs("clean", req)
	if err != nil {
		return err
	}
	_, err = d.run(ctx, req, false, args)
	return err
}

func fileArgs(op string, req Request) ([]string, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("kas %s: no configuration files: %w", op, issue.ErrConfiguration)
	}
	return []string{op, strings.Join(req.Files, FileSeparator)}, nil
}

// run executes one kas command after the probe. When capture is set stdout is
// returned and stderr kept for the error; otherwise both are streamed.
func (d *Driver) run(ctx context.Context, req Request, capture bool, args []string) (string, error) {
	if err := d.Probe(ctx, req); err != nil {
		return "", err
	}

	bin := d.Binary(req.Mode)
	d.logger.Info("running "+bin+" "+strings.Join(args, " "), "dir", req.WorkDir, "mode", req.Mode)
	for _, key := range importantKeys {
		if v, ok := req.Env[key]; ok {
			d.logger.Info("using "+key, "value", v)
		}
	}

	cmd := d.execCommand(ctx, bin, args...)
	cmd.Dir = req.WorkDir
	cmd.Env = append(cmd.Env, environ.List(req.Env)...)

	var stdout, stderr bytes.Buffer
	if capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdin = d.stdin
		cmd.Stdout = d.stdout
		cmd.Stderr = d.stderr
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s %s interrupted: %w", bin, args[0], ctxErr)
		}
		cmdErr := &CommandError{Command: bin, Args: args, ExitCode: -1, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return "", cmdErr
	}

	return stdout.String(), nil
}
