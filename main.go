// SPDX-License-Identifier: MPL-2.0

package main

import cmd "chatops-anything/cmd/chatopsd"

func main() {
	cmd.Execute()
}
