//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in a new session, detaching it from the
// controlling terminal.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
