// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/Advantech-EECC/modular-bsp-build/internal/bsp"

	"github.com/spf13/cobra"
)

// exportRule frames an export printed to stdout.
var exportRule = strings.Repeat("=", 60)

func newBuildCommand(app *App) *cobra.Command {
	var opts bsp.BuildOptions

	cmd := &cobra.Command{
		Use:   "build <bsp>",
		Short: "Build an image for a BSP",
		Long: `Build an image for a BSP.

The build container image is built first when the BSP's container defines
both an image and a Dockerfile. kas-container then builds the BSP in the
build directory named by the registry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, s, err := app.manager(cmd.Context())
			if err != nil {
				return err
			}
			if err := m.Build(cmd.Context(), args[0], opts); err != nil {
				return err
			}
			s.logger.Info("command completed successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Clean, "clean", false, "run kas clean before building")
	cmd.Flags().StringVar(&opts.Target, "target", "", "bitbake target to build instead of the configured one")
	cmd.Flags().StringVar(&opts.Task, "task", "", "bitbake task to run")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "build the container image without cache")

	return cmd
}

func newShellCommand(app *App) *cobra.Command {
	var command string

	cmd := &cobra.Command{
		Use:   "shell <bsp>",
		Short: "Enter an interactive shell for a BSP",
		Long: `Enter an interactive kas shell in the BSP's build environment.

With --command the command runs in the shell and bsp exits with it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := app.manager(cmd.Context())
			if err != nil {
				return err
			}
			return m.Shell(cmd.Context(), args[0], command)
		},
	}

	cmd.Flags().StringVarP(&command, "command", "c", "", "command to execute in the shell")

	return cmd
}

func newBitbakeCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bitbake <bsp> <recipe> [args...]",
		Short: "Run bitbake for a recipe in a BSP's build environment",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, s, err := app.manager(cmd.Context())
			if err != nil {
				return err
			}
			if err := m.Bitbake(cmd.Context(), args[0], args[1], args[2:]); err != nil {
				return err
			}
			s.logger.Info("bitbake completed successfully")
			return nil
		},
	}

	// Everything after <bsp> belongs to bitbake, including its own flags.
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func newExportCommand(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <bsp>",
		Short: "Export a BSP's expanded kas configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, s, err := app.manager(cmd.Context())
			if err != nil {
				return err
			}

			dump, err := m.Export(cmd.Context(), args[0], output)
			if err != nil {
				return err
			}

			if output == "" {
				w := cmd.OutOrStdout()
				fmt.Fprintln(w)
				fmt.Fprintln(w, exportRule)
				fmt.Fprintf(w, "KAS Configuration for BSP: %s\n", args[0])
				fmt.Fprintln(w, exportRule)
				fmt.Fprintln(w, dump)
				fmt.Fprintln(w, exportRule)
			}
			s.logger.Info("configuration exported", "bsp", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: stdout)")

	return cmd
}
