// SPDX-License-Identifier: MPL-2.0

// Package container builds the images that BSP targets run their builds in.
//
// The Engine interface covers what the orchestrator needs from a container
// engine: an availability check, a version query, an image existence check and
// an image build. DockerEngine and PodmanEngine embed BaseCLIEngine for shared
// argument construction and command execution. Commands are created through an
// injectable ExecCommandFunc so tests never need a real engine.
package container
