//go:build unix

package subprocess

import (
	"fmt"
	"os"
	"syscall"
)

// processGroup signals every process in the group led by the child, so
// grandchildren holding the output pipes die with it.
type processGroup struct {
	pid int
}

func newKiller(proc *os.Process) killer {
	return processGroup{pid: proc.Pid}
}

func (p processGroup) Kill() error {
	return syscall.Kill(-p.pid, syscall.SIGKILL)
}

func (p processGroup) Signal(sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return fmt.Errorf("unsupported signal %v", sig)
	}

	return syscall.Kill(-p.pid, s)
}

// exitSignal returns the signal that terminated the process, or 0.
func exitSignal(state *os.ProcessState) syscall.Signal {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ws.Signal()
	}

	return 0
}
