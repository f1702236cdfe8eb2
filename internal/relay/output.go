package relay

import (
	"errors"
	"io"
	"log/slog"

	"github.com/wagiedev/procpipe/internal/config"
	"github.com/wagiedev/procpipe/internal/decode"
	"github.com/wagiedev/procpipe/internal/queue"
)

// Output reads pipe in chunks of at most chunkSize bytes, decodes each chunk
// to text and pushes it onto out in arrival order.
//
// It returns at end of stream, on a read error, or as soon as a push fails
// because the caller dropped the receiving handle. It closes pipe and the
// sending side of out before returning.
func Output(
	log *slog.Logger,
	stream Stream,
	pipe io.ReadCloser,
	out *queue.Queue[string],
	chunkSize int,
) (term Termination) {
	log = log.With("stream", stream)
	term.Stream = stream

	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}

	defer func() {
		out.CloseSend()

		if err := pipe.Close(); err != nil && !IsBrokenPipe(err) {
			log.Debug("Closing output pipe failed", "error", err)
		}

		log.Debug("Output relay stopped", "reason", term.Reason)
	}()

	dec := decode.NewDecoder()
	buf := make([]byte, chunkSize)

	for {
		n, err := pipe.Read(buf)
		if n > 0 {
			if text := dec.Decode(buf[:n]); text != "" {
				if pushErr := out.Push(text); pushErr != nil {
					term.Reason = ReasonReceiverDropped

					return term
				}
			}
		}

		if err == nil && n > 0 {
			continue
		}

		if rest := dec.Flush(); rest != "" {
			if pushErr := out.Push(rest); pushErr != nil {
				term.Reason = ReasonReceiverDropped

				return term
			}
		}

		if err == nil || errors.Is(err, io.EOF) {
			term.Reason = ReasonEOF

			return term
		}

		log.Debug("Read from output pipe failed", "error", err)

		term.Reason = ReasonReadFailed
		term.Err = err

		return term
	}
}
