// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, string, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider backed by the filesystem and environment.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source and reports which file was used.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}

// StaticProvider returns a fixed configuration. It is meant for tests and embedding.
type StaticProvider struct {
	Config *Config
	Path   string
	Err    error
}

// Load returns the fixed configuration, or a copy of the defaults when Config is nil.
func (p *StaticProvider) Load(_ context.Context, _ LoadOptions) (*Config, string, error) {
	if p.Err != nil {
		return nil, "", p.Err
	}
	if p.Config == nil {
		return DefaultConfig(), p.Path, nil
	}
	cfg := *p.Config
	return &cfg, p.Path, nil
}
