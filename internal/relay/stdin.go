package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/wagiedev/procpipe/internal/queue"
)

// Stdin drains in into pipe, one chunk at a time and in order.
//
// It returns when in is closed and drained, when a write fails, or when ctx
// is cancelled. In every case it closes pipe and the receiving side of in, so
// later pushes from the caller fail.
func Stdin(
	ctx context.Context,
	log *slog.Logger,
	pipe io.WriteCloser,
	in *queue.Queue[string],
) (term Termination) {
	log = log.With("stream", StreamStdin)
	term.Stream = StreamStdin

	defer func() {
		in.CloseRecv()

		if err := pipe.Close(); err != nil && !IsBrokenPipe(err) {
			log.Debug("Closing stdin pipe failed", "error", err)
		}

		log.Debug("Stdin relay stopped", "reason", term.Reason)
	}()

	written := 0

	for {
		chunk, err := in.Pop(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				term.Reason = ReasonEOF
			} else {
				term.Reason = ReasonCancelled
			}

			return term
		}

		if _, err := io.WriteString(pipe, chunk); err != nil {
			// A write interrupted by cancellation is not an I/O failure.
			if ctx.Err() != nil {
				term.Reason = ReasonCancelled

				return term
			}

			log.Debug("Write to stdin pipe failed", "error", err, "bytes_written", written)

			term.Reason = ReasonWriteFailed
			term.Err = err

			return term
		}

		written += len(chunk)
	}
}
