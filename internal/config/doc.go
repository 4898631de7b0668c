// SPDX-License-Identifier: MPL-2.0

// Package config handles the bsp tool configuration using Viper with CUE as the file format.
//
// The file lives at $XDG_CONFIG_HOME/bsp/config.cue (resolved through adrg/xdg, so
// macOS and Windows get their native locations) and is validated against the embedded
// config_schema.cue before it is merged over the defaults. BSP_* environment variables
// override file values; command-line flags override both.
//
// This configures the tool, not the boards: the BSP registry itself is loaded by the
// registry package.
package config
