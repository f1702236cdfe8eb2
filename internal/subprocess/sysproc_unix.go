//go:build unix && !linux

package subprocess

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr puts the child in its own process group.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
