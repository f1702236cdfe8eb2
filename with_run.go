package procpipe

import (
	"context"
	"fmt"
)

// WithRun spawns cmd, passes its handles to fn, and waits for the run to
// finish. It handles stdin closing and cancellation automatically.
//
// When fn returns, the stdin handle is closed. If fn returned an error the
// process is also cancelled, and that error is returned alongside the
// result. Otherwise the error from Handles.Wait is returned.
//
// Output that fn did not consume stays buffered in the receivers and is
// discarded with them.
//
// Example:
//
//	result, err := procpipe.WithRun(ctx, &procpipe.Command{Program: "wc", Args: []string{"-l"}},
//	    func(h *procpipe.Handles) error {
//	        return h.Stdin.SendAll(procpipe.Lines("a", "b", "c"))
//	    },
//	)
func WithRun(ctx context.Context, cmd *Command, fn func(*Handles) error, opts ...Option) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cancel := NewBroadcaster()
	defer cancel.Close()

	h, err := Run(ctx, cmd, cancel.Subscribe(), opts...)
	if err != nil {
		return nil, fmt.Errorf("start process: %w", err)
	}

	fnErr := fn(h)
	if fnErr != nil {
		cancel.Publish()
	}

	_ = h.Stdin.Close()

	result, waitErr := h.Wait()
	if fnErr != nil {
		return result, fnErr
	}

	return result, waitErr
}
