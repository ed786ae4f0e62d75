//go:build unix

package inference

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the worker in its own process group so a timeout
// kill also reaches anything it spawned.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
