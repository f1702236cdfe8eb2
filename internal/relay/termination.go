package relay

import (
	stderrors "errors"
	"io"
	"os"
	"syscall"

	"github.com/wagiedev/procpipe/internal/errors"
)

// Stream names the worker a Termination belongs to.
type Stream string

const (
	StreamStdin   Stream = "stdin"
	StreamStdout  Stream = "stdout"
	StreamStderr  Stream = "stderr"
	StreamWatcher Stream = "watcher"
)

// Reason describes why a worker stopped.
type Reason string

const (
	// ReasonEOF means the input queue was closed and drained (stdin) or the
	// pipe reached end of stream (stdout, stderr).
	ReasonEOF Reason = "eof"
	// ReasonWriteFailed means a write to the stdin pipe failed.
	ReasonWriteFailed Reason = "write_failed"
	// ReasonReadFailed means a read from an output pipe failed with
	// something other than end of stream.
	ReasonReadFailed Reason = "read_failed"
	// ReasonReceiverDropped means the caller closed the output handle.
	ReasonReceiverDropped Reason = "receiver_dropped"
	// ReasonCancelled means cancellation stopped the stdin relay. For the
	// watcher it means cancellation arrived after the process had exited,
	// so only the stdin side was closed.
	ReasonCancelled Reason = "cancelled"
	// ReasonKilled means the watcher received cancellation and killed the
	// process.
	ReasonKilled Reason = "killed"
	// ReasonDisarmed means the cancellation subscription ended without an
	// event.
	ReasonDisarmed Reason = "disarmed"
	// ReasonProcessExited means the watcher stood down because the process
	// exited on its own.
	ReasonProcessExited Reason = "process_exited"
)

// Termination records how a worker ended.
type Termination struct {
	Stream Stream
	Reason Reason
	// Err is the I/O error behind ReasonWriteFailed or ReasonReadFailed.
	Err error
}

// Failure returns the error a caller should see for this termination, or nil
// when the worker stopped cleanly. A stdin write that failed because the
// process closed its end of the pipe counts as clean.
func (t Termination) Failure() error {
	switch t.Reason {
	case ReasonWriteFailed:
		if IsBrokenPipe(t.Err) {
			return nil
		}

		return &errors.RelayError{Stream: string(t.Stream), Op: "write", Err: t.Err}
	case ReasonReadFailed:
		return &errors.RelayError{Stream: string(t.Stream), Op: "read", Err: t.Err}
	default:
		return nil
	}
}

// IsBrokenPipe reports whether err means the other end of a pipe is gone.
func IsBrokenPipe(err error) bool {
	return stderrors.Is(err, syscall.EPIPE) ||
		stderrors.Is(err, os.ErrClosed) ||
		stderrors.Is(err, io.ErrClosedPipe)
}
