// SPDX-License-Identifier: MPL-2.0

// Package kasfile flattens kas configuration files and their local includes
// into the ordered list handed to kas.
//
// Includes are read from the top-level "includes" list and from
// "header.includes". Repository includes (mappings with a "repo" key) are
// resolved by kas itself after checkout and are left out of the list.
package kasfile
