package subprocess

import (
	"context"
	stderrors "errors"
	"io"
	"iter"
	"strings"
	"syscall"
	"time"

	"github.com/wagiedev/procpipe/internal/errors"
	"github.com/wagiedev/procpipe/internal/queue"
	"github.com/wagiedev/procpipe/internal/relay"
)

// StdinSender is the caller's end of the stdin queue.
type StdinSender struct {
	q *queue.Queue[string]
}

// Send queues chunk for the process. It never blocks. It returns
// ErrStdinClosed once Close was called or the stdin relay has stopped.
func (s *StdinSender) Send(chunk string) error {
	if err := s.q.Push(chunk); err != nil {
		return errors.ErrStdinClosed
	}

	return nil
}

// SendAll sends every chunk produced by chunks, stopping at the first
// failure.
func (s *StdinSender) SendAll(chunks iter.Seq[string]) error {
	for chunk := range chunks {
		if err := s.Send(chunk); err != nil {
			return err
		}
	}

	return nil
}

// Close signals that no more input will be sent. Chunks already queued are
// still delivered. It is safe to call Close more than once.
func (s *StdinSender) Close() error {
	s.q.CloseSend()

	return nil
}

// OutputReceiver is the caller's end of the stdout or stderr queue.
type OutputReceiver struct {
	stream relay.Stream
	q      *queue.Queue[string]
}

// Stream reports which stream this receiver carries.
func (r *OutputReceiver) Stream() relay.Stream {
	return r.stream
}

// Recv returns the next chunk in order, blocking until one is available.
//
// Returns io.EOF once the relay has stopped and every chunk was received,
// ErrReceiverClosed after Close, or ctx.Err() if ctx is done first.
func (r *OutputReceiver) Recv(ctx context.Context) (string, error) {
	chunk, err := r.q.Pop(ctx)
	if stderrors.Is(err, queue.ErrReceiverGone) {
		return "", errors.ErrReceiverClosed
	}

	return chunk, err
}

// Chunks returns an iterator over the remaining chunks. Iteration ends
// silently at end of stream; any other error is yielded once and ends it.
func (r *OutputReceiver) Chunks(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			chunk, err := r.Recv(ctx)
			if stderrors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				yield("", err)

				return
			}

			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// ReadAll receives until end of stream and returns the concatenated text.
func (r *OutputReceiver) ReadAll(ctx context.Context) (string, error) {
	var sb strings.Builder

	for chunk, err := range r.Chunks(ctx) {
		if err != nil {
			return sb.String(), err
		}

		sb.WriteString(chunk)
	}

	return sb.String(), nil
}

// Close drops the receiver. Buffered chunks are discarded and the relay
// stops at its next chunk.
func (r *OutputReceiver) Close() {
	r.q.CloseRecv()
}

// Result describes a finished run.
type Result struct {
	ID      string
	Pid     int
	Program string
	Args    []string
	Started time.Time
	Stopped time.Time

	// ExitCode is the process exit code, or -1 if it was terminated by a
	// signal.
	ExitCode int

	// Signal is the signal that terminated the process, or 0.
	Signal syscall.Signal

	// Cancelled reports whether the watcher killed the process.
	Cancelled bool

	Stdin   relay.Termination
	Stdout  relay.Termination
	Stderr  relay.Termination
	Watcher relay.Termination
}

// Handles are returned by Run. The three stream handles stay usable
// independently of the process lifetime.
type Handles struct {
	Stdin  *StdinSender
	Stdout *OutputReceiver
	Stderr *OutputReceiver

	id     string
	pid    int
	done   chan struct{}
	result *Result
	err    error
}

func newHandles(id string, pid int) *Handles {
	return &Handles{
		Stdin:  &StdinSender{q: queue.New[string]()},
		Stdout: &OutputReceiver{stream: relay.StreamStdout, q: queue.New[string]()},
		Stderr: &OutputReceiver{stream: relay.StreamStderr, q: queue.New[string]()},
		id:     id,
		pid:    pid,
		done:   make(chan struct{}),
	}
}

// ID returns the run identifier, a ULID.
func (h *Handles) ID() string {
	return h.id
}

// Pid returns the process id of the child.
func (h *Handles) Pid() int {
	return h.pid
}

// Done returns a channel that is closed once the process has been reaped and
// every worker of the run has stopped.
func (h *Handles) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until Done is closed and returns the run result.
//
// The error joins every relay I/O failure (RelayError) and, when the process
// exited unsuccessfully without being cancelled, a ProcessError. It may be
// called any number of times.
func (h *Handles) Wait() (*Result, error) {
	<-h.done

	return h.result, h.err
}

func (h *Handles) finish(result *Result, err error) {
	h.result = result
	h.err = err
	close(h.done)
}
