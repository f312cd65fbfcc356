//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

const (
	detachedProcess     = 0x00000008
	createNewProcessGrp = 0x00000200
	createNoWindow      = 0x08000000
)

// detach starts cmd detached from the console, with no window.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: detachedProcess | createNewProcessGrp | createNoWindow,
	}
}
