package procpipe

import "github.com/wagiedev/procpipe/internal/broadcast"

// Broadcaster is a one-shot cancellation source. Every channel returned by
// Subscribe receives a single value when Publish is first called, and is
// closed without a value by Close.
type Broadcaster = broadcast.Broadcaster

// NewBroadcaster creates a Broadcaster whose subscriptions can be passed to
// Run as the cancellation channel.
func NewBroadcaster() *Broadcaster {
	return broadcast.New()
}
