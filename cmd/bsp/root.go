// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand creates the bsp command tree bound to app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bsp",
		Short: "Build board support packages with kas",
		Long: TitleStyle.Render("bsp") + SubtitleStyle.Render(" - Board Support Package registry and build orchestrator") + `

bsp reads a registry of board support packages, resolves each one's kas
configuration files and build container, and drives kas or kas-container
to build, inspect or export it.

` + SubtitleStyle.Render("Examples:") + `
  bsp list                     List the BSPs in bsp-registry.yml
  bsp build imx8-scarthgap     Build a BSP
  bsp shell imx8-scarthgap     Enter the build environment
  bsp export imx8 -o imx8.yml  Write the expanded kas configuration
  bsp config show              Show the current configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVarP(&app.flags.registry, "registry", "r", "", "BSP registry file (default from config: bsp-registry.yml)")
	flags.BoolVar(&app.flags.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/bsp/config.cue)")

	rootCmd.AddCommand(
		newListCommand(app),
		newContainersCommand(app),
		newBuildCommand(app),
		newShellCommand(app),
		newBitbakeCommand(app),
		newExportCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the bsp CLI and exits the process with the resulting code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	os.Exit(run(context.Background(), app, os.Args[1:]))
}

// run executes the command tree with args and returns the exit code.
func run(ctx context.Context, app *App, args []string) int {
	rootCmd := newRootCommand(app)
	rootCmd.SetArgs(args)

	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			app.renderError(w, err)
		}),
	)
	return exitCode(err)
}

// renderError writes err for the user. Interrupts are reported in one line;
// in verbose mode the catalog entry for the error, if any, follows.
func (a *App) renderError(w io.Writer, err error) {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, WarningStyle.Render("Interrupted"))
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))

	if !a.verbose {
		return
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		if entry := issue.Get(ae.Issue); entry != nil {
			if rendered, renderErr := entry.Render("dark"); renderErr == nil {
				fmt.Fprint(w, rendered)
			}
		}
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
