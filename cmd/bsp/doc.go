// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for bsp.
//
// The command tree is built by newRootCommand from an App, the composition
// root holding the configuration provider and the factories for the kas driver
// and container engines. Tests supply their own Dependencies to run commands
// without touching the real tools.
package cmd
