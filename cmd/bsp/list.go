// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available BSPs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, s, err := app.manager(cmd.Context())
			if err != nil {
				return err
			}

			targets, err := m.List()
			if err != nil {
				return err
			}

			s.logger.Info("available BSPs")
			w := cmd.OutOrStdout()
			for _, t := range targets {
				fmt.Fprintf(w, "- %s: %s\n", CmdStyle.Render(t.Name), t.Description)
			}
			return nil
		},
	}
}

func newContainersCommand(app *App) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "containers",
		Short: "List available containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, s, err := app.manager(cmd.Context())
			if err != nil {
				return err
			}

			specs := m.Containers()
			if len(specs) == 0 {
				s.logger.Info("no container definitions found in registry")
				return nil
			}

			var present map[string]bool
			if local {
				if present, err = m.LocalImages(cmd.Context()); err != nil {
					return err
				}
			}

			s.logger.Info("available containers")
			w := cmd.OutOrStdout()
			for _, c := range specs {
				fmt.Fprintf(w, "- %s:\n", CmdStyle.Render(c.Name))
				fmt.Fprintf(w, "    Image: %s\n", c.Image)
				fmt.Fprintf(w, "    File: %s\n", c.Dockerfile)
				if len(c.BuildArgs) > 0 {
					args := make([]string, 0, len(c.BuildArgs))
					for _, a := range c.BuildArgs {
						args = append(args, a.Name+"="+a.Value)
					}
					fmt.Fprintf(w, "    Args: %s\n", strings.Join(args, ", "))
				}
				if local && c.Image != "" {
					fmt.Fprintf(w, "    Local: %s\n", yesNo(present[c.Name]))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "report whether each image is present in the container engine")

	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
