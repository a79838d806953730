// SPDX-License-Identifier: MPL-2.0

//go:build unix

package executor

import (
	"os/exec"
	"syscall"
	"time"
)

// sigkillDelay is how long the watchdog waits between SIGTERM and SIGKILL.
const sigkillDelay = 200 * time.Millisecond

// setProcAttributes places the subprocess in its own process group so the
// watchdog can terminate it together with any children it spawned.
func setProcAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateGroup kills the process group: SIGTERM first, then SIGKILL after a
// short grace period. Errors are ignored; the group may already be gone.
func terminateGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(sigkillDelay)
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
