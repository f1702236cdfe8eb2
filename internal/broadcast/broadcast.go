// Package broadcast provides the one-shot cancellation broadcast consumed by
// runs.
//
// A Broadcaster hands out subscriptions as receive-only channels. Publish
// delivers exactly one value to every subscription, including ones created
// afterwards. Close ends every subscription that has not received the event,
// which subscribers observe as a closed channel.
package broadcast

import "sync"

// Broadcaster is safe for concurrent use.
type Broadcaster struct {
	mu        sync.Mutex
	subs      []chan struct{}
	published bool
	closed    bool
}

// New creates a Broadcaster with no subscribers.
func New() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe returns a channel that receives one value when Publish is called
// and is closed when Close is called without a prior Publish.
func (b *Broadcaster) Subscribe() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan struct{}, 1)

	switch {
	case b.published:
		ch <- struct{}{}
	case b.closed:
		close(ch)
	default:
		b.subs = append(b.subs, ch)
	}

	return ch
}

// Publish delivers the event to every subscriber. Only the first call has an
// effect; it reports whether this call was the one that published.
func (b *Broadcaster) Publish() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.published || b.closed {
		return false
	}

	b.published = true

	for _, ch := range b.subs {
		ch <- struct{}{}
	}

	b.subs = nil

	return true
}

// Close ends all pending subscriptions without an event. It is a no-op after
// Publish and idempotent.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.published {
		return
	}

	b.closed = true

	for _, ch := range b.subs {
		close(ch)
	}

	b.subs = nil
}
