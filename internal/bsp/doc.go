// SPDX-License-Identifier: MPL-2.0

// Package bsp orchestrates BSP builds.
//
// Manager.Prepare turns a target name into an Invocation: the effective
// container, the build directory, the flattened kas file list and the complete
// driver environment. Prepare performs no external commands. The lifecycle
// operations (Build, Shell, Bitbake, Export) hand the Invocation to the kas
// driver and, where the container defines one, build the container image first.
package bsp
