// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/bndkit/bndkit/cmd/bndkit"

func main() {
	cmd.Execute()
}
