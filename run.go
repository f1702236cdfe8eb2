package procpipe

import (
	"context"

	"github.com/wagiedev/procpipe/internal/config"
	"github.com/wagiedev/procpipe/internal/relay"
	"github.com/wagiedev/procpipe/internal/subprocess"
)

// Command describes the program to run.
type Command = config.Command

// Handles are the caller's ends of a running process.
type Handles = subprocess.Handles

// StdinSender sends text chunks to the process's standard input.
type StdinSender = subprocess.StdinSender

// OutputReceiver receives decoded text chunks from stdout or stderr.
type OutputReceiver = subprocess.OutputReceiver

// Result describes a finished run.
type Result = subprocess.Result

// Termination records why one worker of a run stopped.
type Termination = relay.Termination

// Stream names a standard stream or the cancellation watcher.
type Stream = relay.Stream

// Reason explains why a worker stopped.
type Reason = relay.Reason

// Streams.
const (
	StreamStdin   = relay.StreamStdin
	StreamStdout  = relay.StreamStdout
	StreamStderr  = relay.StreamStderr
	StreamWatcher = relay.StreamWatcher
)

// Termination reasons.
const (
	ReasonEOF             = relay.ReasonEOF
	ReasonWriteFailed     = relay.ReasonWriteFailed
	ReasonReadFailed      = relay.ReasonReadFailed
	ReasonReceiverDropped = relay.ReasonReceiverDropped
	ReasonCancelled       = relay.ReasonCancelled
	ReasonKilled          = relay.ReasonKilled
	ReasonDisarmed        = relay.ReasonDisarmed
	ReasonProcessExited   = relay.ReasonProcessExited
)

// Run spawns cmd and returns the handles for its standard streams. It
// returns as soon as the process has started; the relays and the
// cancellation watcher keep running in the background.
//
// A value received from cancel, or ctx becoming done, kills the process.
// A nil cancel channel never fires. The only errors returned are spawn
// failures: ErrNilCommand, ErrEmptyProgram, *ProgramNotFoundError,
// *SpawnError, or ctx.Err() when ctx is already done.
func Run(ctx context.Context, cmd *Command, cancel <-chan struct{}, opts ...Option) (*Handles, error) {
	return subprocess.Run(ctx, cmd, cancel, config.Apply(opts))
}
