// SPDX-License-Identifier: MPL-2.0

package main

import cmd "terra-cli/cmd/terra"

func main() {
	cmd.Execute()
}
