// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// ContainerEngineDocker uses Docker to build container images.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman uses Podman to build container images.
	ContainerEnginePodman ContainerEngine = "podman"

	// DefaultRegistryFile is the registry path used when nothing else is configured.
	DefaultRegistryFile = "bsp-registry.yml"
	// DefaultKasCommand is the native kas executable.
	DefaultKasCommand = "kas"
	// DefaultKasContainerCommand is the containerized kas wrapper.
	DefaultKasContainerCommand = "kas-container"
	// DefaultProbeTimeoutSeconds bounds the kas availability probe.
	DefaultProbeTimeoutSeconds = 30
)

// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
var ErrInvalidContainerEngine = errors.New("invalid container engine")

type (
	// ContainerEngine specifies which container runtime builds images.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	// It wraps ErrInvalidContainerEngine for errors.Is() compatibility.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// Config holds the bsp tool configuration.
	Config struct {
		// Registry is the BSP registry file path.
		Registry string `json:"registry" mapstructure:"registry"`
		// ContainerEngine selects docker or podman for image builds.
		ContainerEngine ContainerEngine `json:"container_engine" mapstructure:"container_engine"`
		// SearchPaths are extra kas configuration search roots, searched last.
		SearchPaths []string `json:"search_paths" mapstructure:"search_paths"`
		// StrictIncludes reports include cycles as errors instead of ignoring them.
		StrictIncludes bool `json:"strict_includes" mapstructure:"strict_includes"`
		// Kas configures the build driver.
		Kas KasConfig `json:"kas" mapstructure:"kas"`
		// UI configures terminal output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// KasConfig configures the kas build driver.
	KasConfig struct {
		Command          string `json:"command" mapstructure:"command"`
		ContainerCommand string `json:"container_command" mapstructure:"container_command"`
		// ProbeTimeout is in seconds.
		ProbeTimeout int `json:"probe_timeout" mapstructure:"probe_timeout"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		Color   bool `json:"color" mapstructure:"color"`
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: docker, podman)", e.Value)
}

// Unwrap returns ErrInvalidContainerEngine for errors.Is() compatibility.
func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// Validate returns nil if the ContainerEngine is docker or podman.
func (ce ContainerEngine) Validate() error {
	switch ce {
	case ContainerEngineDocker, ContainerEnginePodman:
		return nil
	default:
		return &InvalidContainerEngineError{Value: ce}
	}
}

// String returns the string representation of the ContainerEngine.
func (ce ContainerEngine) String() string { return string(ce) }

// ProbeTimeoutDuration returns the probe timeout, falling back to the default for non-positive values.
func (k KasConfig) ProbeTimeoutDuration() time.Duration {
	if k.ProbeTimeout <= 0 {
		return DefaultProbeTimeoutSeconds * time.Second
	}
	return time.Duration(k.ProbeTimeout) * time.Second
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Registry:        DefaultRegistryFile,
		ContainerEngine: ContainerEngineDocker,
		SearchPaths:     []string{},
		Kas: KasConfig{
			Command:          DefaultKasCommand,
			ContainerCommand: DefaultKasContainerCommand,
			ProbeTimeout:     DefaultProbeTimeoutSeconds,
		},
		UI: UIConfig{
			Color: true,
		},
	}
}
