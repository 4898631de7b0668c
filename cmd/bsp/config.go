// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Advantech-EECC/modular-bsp-build/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `bsp config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bsp configuration",
		Long: `Manage bsp configuration.

Configuration is read from config.cue in $XDG_CONFIG_HOME/bsp, or from the
file given with --config. Every key can be overridden with a BSP_ environment
variable, e.g. BSP_CONTAINER_ENGINE=podman or BSP_KAS_COMMAND=/opt/kas/bin/kas.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			showConfig(cmd.OutOrStdout(), s)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Config directory: %s\n", config.ConfigDir())
			fmt.Fprintf(w, "Config file: %s\n", configFileTarget(app))
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configFileTarget(app)
			if err := config.WriteDefault(path, force); err != nil {
				if errors.Is(err, os.ErrExist) {
					return fmt.Errorf("%w (use --force to overwrite)", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

// configFileTarget is the file --config names, or the default config file.
func configFileTarget(app *App) string {
	if app.flags.configPath != "" {
		return app.flags.configPath
	}
	return config.ConfigFilePath("")
}

func showConfig(w io.Writer, s *session) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if s.configPath != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), s.configPath)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	cfg := s.cfg
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("registry"), valueStyle.Render(cfg.Registry))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("container_engine"), valueStyle.Render(cfg.ContainerEngine.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("strict_includes"), valueStyle.Render(fmt.Sprint(cfg.StrictIncludes)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("search_paths"))
	if len(cfg.SearchPaths) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		for _, p := range cfg.SearchPaths {
			fmt.Fprintf(w, "  - %s\n", valueStyle.Render(p))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("kas"))
	fmt.Fprintf(w, "  command: %s\n", valueStyle.Render(cfg.Kas.Command))
	fmt.Fprintf(w, "  container_command: %s\n", valueStyle.Render(cfg.Kas.ContainerCommand))
	fmt.Fprintf(w, "  probe_timeout: %s\n", valueStyle.Render(cfg.Kas.ProbeTimeoutDuration().String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color: %s\n", valueStyle.Render(fmt.Sprint(cfg.UI.Color)))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))
}
