//go:build linux

package subprocess

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr sets Linux-specific process attributes on cmd.
// The child leads its own process group so cancellation reaches everything
// it started. Pdeathsig makes the kernel kill the child when the thread that
// spawned it exits, so a crashed caller does not leave the process running.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}
