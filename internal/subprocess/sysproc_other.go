//go:build !unix

package subprocess

import (
	"os"
	"os/exec"
	"syscall"
)

func configureSysProcAttr(*exec.Cmd) {}

// newKiller signals only the child; there are no process groups to target.
func newKiller(proc *os.Process) killer {
	return proc
}

func exitSignal(*os.ProcessState) syscall.Signal {
	return 0
}
