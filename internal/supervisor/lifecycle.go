// Package supervisor implements the daemon's lifecycle concerns:
// background-detach re-exec, PID-file bookkeeping so a second
// `start` doesn't spawn a duplicate background instance, and a
// restart loop for the optional status-producer subprocess.
package supervisor

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/logging"
)

// PIDFile is where the background instance records its process ID.
const PIDFile = "macrodeckd.pid"

// IsRunning reports whether pid names a live process, via gopsutil
// rather than a raw kill(pid, 0) probe.
func IsRunning(pid int) (bool, error) {
	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return false, fmt.Errorf("supervisor: check pid %d: %w", pid, err)
	}
	return exists, nil
}

// RunningBackgroundPID reads PIDFile and returns its PID if that
// process is still alive, else ok is false.
func RunningBackgroundPID() (pid int, ok bool) {
	data, err := os.ReadFile(PIDFile)
	if err != nil {
		return 0, false
	}
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, false
	}
	alive, err := IsRunning(pid)
	if err != nil || !alive {
		return 0, false
	}
	return pid, true
}

// WritePIDFile records the current process's PID, for a later
// RunningBackgroundPID check.
func WritePIDFile() error {
	return os.WriteFile(PIDFile, fmt.Appendf(nil, "%d", os.Getpid()), 0o644)
}

// RemovePIDFile clears the PID file on clean shutdown.
func RemovePIDFile() {
	if err := os.Remove(PIDFile); err != nil && !os.IsNotExist(err) {
		logging.Supervisor.Printf("remove pid file: %v", err)
	}
}

// StartBackground re-execs the current binary with "start"
// "--foreground" plus args, detached from the controlling terminal,
// and returns without waiting for it to exit.
func StartBackground(args []string) error {
	if pid, ok := RunningBackgroundPID(); ok {
		return fmt.Errorf("supervisor: instance already running (pid %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("supervisor: resolve executable: %w", err)
	}

	fullArgs := append([]string{"start", "--foreground"}, args...)
	cmd := exec.Command(exe, fullArgs...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("supervisor: start background process: %w", err)
	}
	logging.Supervisor.Printf("started in background, pid %d", cmd.Process.Pid)
	return nil
}
