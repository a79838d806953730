// SPDX-License-Identifier: MPL-2.0

//go:build windows

package executor

import (
	"os/exec"
	"strconv"
)

// setProcAttributes is a no-op on Windows; taskkill /t handles the tree.
func setProcAttributes(cmd *exec.Cmd) {}

// terminateGroup force-kills the process tree rooted at pid.
func terminateGroup(pid int) {
	_ = exec.Command("taskkill", "/pid", strconv.Itoa(pid), "/f", "/t").Run()
}
