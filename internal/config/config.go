// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "bsp"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. BSP_CONTAINER_ENGINE.
	EnvPrefix = "BSP"

	// maxConfigFileSize guards against accidentally pointing at a huge file.
	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// ErrConfigFileNotFound is returned when an explicitly requested config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// ConfigDir returns the bsp configuration directory under the XDG config home.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigFilePath returns the default config file path inside dir, or inside ConfigDir when dir is empty.
func ConfigFilePath(dir string) string {
	if dir == "" {
		dir = ConfigDir()
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
}

// loadWithOptions performs option-driven config loading. The returned path is
// the file that was actually read, or "" when only defaults and environment applied.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("registry", defaults.Registry)
	v.SetDefault("container_engine", string(defaults.ContainerEngine))
	v.SetDefault("search_paths", defaults.SearchPaths)
	v.SetDefault("strict_includes", defaults.StrictIncludes)
	v.SetDefault("kas.command", defaults.Kas.Command)
	v.SetDefault("kas.container_command", defaults.Kas.ContainerCommand)
	v.SetDefault("kas.probe_timeout", defaults.Kas.ProbeTimeout)
	v.SetDefault("ui.color", defaults.UI.Color)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'bsp config path' to see where the default file lives").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(errors.Join(issue.ErrConfiguration, ErrConfigFileNotFound)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else if candidate := ConfigFilePath(opts.ConfigDirPath); fileExists(candidate) {
		resolvedPath = candidate
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(errors.Join(issue.ErrConfiguration, err)).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", errors.Join(issue.ErrConfiguration, err))
	}

	// Environment overrides bypass the CUE schema, so re-check what it would have enforced.
	if err := cfg.ContainerEngine.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Set container_engine (or BSP_CONTAINER_ENGINE) to docker or podman").
			Wrap(errors.Join(issue.ErrConfiguration, err)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("config file %s is %d bytes, limit is %d", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err())
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// formatCUEError flattens a CUE error list into one message per problem.
func formatCUEError(err error) error {
	details := strings.TrimSpace(cueerrors.Details(err, nil))
	if details == "" {
		return err
	}
	return fmt.Errorf("invalid configuration:\n%s", details)
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration to path, creating parent
// directories. It refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("config file %s already exists: %w", path, os.ErrExist)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// bsp configuration file\n\n")

	fmt.Fprintf(&sb, "registry: %q\n", cfg.Registry)
	fmt.Fprintf(&sb, "container_engine: %q\n", cfg.ContainerEngine)
	fmt.Fprintf(&sb, "strict_includes: %v\n", cfg.StrictIncludes)

	sb.WriteString("search_paths: [")
	for i, p := range cfg.SearchPaths {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", p)
	}
	sb.WriteString("]\n")

	sb.WriteString("\nkas: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Kas.Command)
	fmt.Fprintf(&sb, "\tcontainer_command: %q\n", cfg.Kas.ContainerCommand)
	fmt.Fprintf(&sb, "\tprobe_timeout: %d\n", cfg.Kas.ProbeTimeout)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor: %v\n", cfg.UI.Color)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
