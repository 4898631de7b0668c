// SPDX-License-Identifier: MPL-2.0

// Package environ expands registry variable values and binds them into the
// environment handed to kas.
//
// The ambient environment is always an explicit map. Nothing here reads the
// process environment except FromOS, which callers use once at the boundary.
package environ
