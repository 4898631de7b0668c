// SPDX-License-Identifier: MPL-2.0

// Package kas drives the kas build tool, either natively (kas) or through its
// container wrapper (kas-container).
//
// A Driver receives a Request describing the resolved configuration files, the
// working directory and the complete environment, and exposes the operations
// the orchestrator needs: Build, Shell, Dump and Clean. Every operation runs the
// availability probe first; the probe result is cached per binary for the
// lifetime of the Driver.
package kas
