// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// It defines the error kind sentinels every other package unwraps to, the
// ActionableError builder used at package boundaries, and a catalog of
// Markdown-formatted remediation guidance rendered for verbose CLI output.
package issue
