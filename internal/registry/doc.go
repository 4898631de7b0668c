// SPDX-License-Identifier: MPL-2.0

// Package registry loads the BSP registry: the catalog of buildable targets,
// named build containers and global environment variables.
//
// Registries are YAML by default; files ending in .toml are decoded as TOML.
// Decoding is into explicit typed structures. Unknown fields are ignored unless
// LoadOptions.RejectUnknownFields is set, and structural problems are reported
// together as a single ValidationError.
package registry
