// SPDX-License-Identifier: MPL-2.0

// Package logging builds the structured loggers shared by the CLI and the
// orchestrator. Diagnostics always go to stderr so stdout stays clean for
// listings and exported configuration.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Prefix is printed in front of every log line.
const Prefix = "bsp"

// Options configures New.
type Options struct {
	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer
	// Verbose lowers the level to debug.
	Verbose bool
	// NoColor forces plain ASCII output.
	NoColor bool
}

// New returns a logger configured from opts.
func New(opts Options) *log.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	logger := log.NewWithOptions(w, log.Options{
		Prefix: Prefix,
		Level:  log.InfoLevel,
	})
	if opts.Verbose {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportTimestamp(true)
	}
	if opts.NoColor {
		logger.SetColorProfile(termenv.Ascii)
	}

	return logger
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Ensure returns l, or a discarding logger when l is nil.
func Ensure(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
