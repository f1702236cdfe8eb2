package subprocess

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/wagiedev/procpipe/internal/relay"
)

// killer delivers signals to the child, or to its whole process group where
// the platform has one. Only the watcher holds it once the process has
// started.
type killer interface {
	Kill() error
	Signal(sig os.Signal) error
}

// watcher kills the process when the run is cancelled.
type watcher struct {
	log   *slog.Logger
	proc  killer
	grace time.Duration
	// onCancel runs before the kill is issued, and also for a cancellation
	// that arrives after the process exited.
	onCancel func()
}

// watch blocks until the run has nothing left to cancel:
//   - a value arrives on sub or ctx is done: onCancel runs and, if the
//     process is still running, its process group is killed,
//   - sub is closed and ctx can never be done: the watcher disarms,
//   - exited and stdinDone are both closed: the process ended on its own and
//     the stdin relay has stopped.
//
// A closed sub only disarms that source; a cancellable ctx is still watched.
func (w *watcher) watch(ctx context.Context, sub, exited, stdinDone <-chan struct{}) relay.Termination {
	term := relay.Termination{Stream: relay.StreamWatcher}

	reaped, stdinStopped := exited, stdinDone
	hasExited := false

	for {
		select {
		case _, ok := <-sub:
			if !ok {
				sub = nil

				if ctx.Done() == nil {
					w.log.Debug("Cancellation subscription closed without event")

					term.Reason = relay.ReasonDisarmed

					return term
				}

				continue
			}

			w.log.Info("Cancellation received")
		case <-ctx.Done():
			w.log.Info("Context done", "error", ctx.Err())
		case <-reaped:
			reaped = nil
			hasExited = true

			if stdinStopped == nil {
				term.Reason = relay.ReasonProcessExited

				return term
			}

			continue
		case <-stdinStopped:
			stdinStopped = nil

			if hasExited {
				term.Reason = relay.ReasonProcessExited

				return term
			}

			continue
		}

		if w.onCancel != nil {
			w.onCancel()
		}

		if hasExited {
			w.log.Debug("Process already exited, closing stdin only")

			term.Reason = relay.ReasonCancelled

			return term
		}

		w.log.Info("Killing process group")
		w.kill(exited)

		term.Reason = relay.ReasonKilled

		return term
	}
}

// kill terminates the process. With a grace period it sends SIGTERM first
// and escalates to SIGKILL only if the process has not exited in time.
func (w *watcher) kill(exited <-chan struct{}) {
	if w.grace <= 0 {
		w.forceKill()

		return
	}

	if err := w.proc.Signal(syscall.SIGTERM); err != nil {
		w.log.Debug("SIGTERM failed, killing instead", "error", err)
		w.forceKill()

		return
	}

	timer := time.NewTimer(w.grace)
	defer timer.Stop()

	select {
	case <-exited:
	case <-timer.C:
		w.log.Warn("Process still running after grace period, killing", "grace_period", w.grace)
		w.forceKill()
	}
}

// forceKill sends SIGKILL. A group that is already gone returns ESRCH, which
// is not a failure here.
func (w *watcher) forceKill() {
	if err := w.proc.Kill(); err != nil {
		w.log.Debug("Kill returned error", "error", err)
	}
}
