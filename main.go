// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/Advantech-EECC/modular-bsp-build/cmd/bsp"

func main() {
	cmd.Execute()
}
