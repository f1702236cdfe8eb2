package queue

import (
	"context"
	"errors"
	"io"
	"sync"
)

var (
	// ErrReceiverGone is returned by Push once the consuming side is closed.
	ErrReceiverGone = errors.New("queue receiver closed")

	// ErrSenderGone is returned by Push once the producing side is closed.
	ErrSenderGone = errors.New("queue sender closed")
)

// Queue is an unbounded FIFO safe for concurrent use.
type Queue[T any] struct {
	mu         sync.Mutex
	items      []T
	sendClosed bool
	recvClosed bool
	// changed is closed and replaced whenever the state above changes, waking
	// every goroutine blocked in Pop.
	changed chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{changed: make(chan struct{})}
}

// Push appends v. It never blocks.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.recvClosed {
		return ErrReceiverGone
	}

	if q.sendClosed {
		return ErrSenderGone
	}

	q.items = append(q.items, v)
	q.notifyLocked()

	return nil
}

// Pop removes and returns the oldest item, blocking while the queue is empty.
//
// Pop returns io.EOF once the sending side is closed and every buffered item
// has been consumed, ErrReceiverGone once the receiving side is closed, and
// ctx.Err() if ctx is done first.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T

	for {
		q.mu.Lock()

		switch {
		case q.recvClosed:
			q.mu.Unlock()

			return zero, ErrReceiverGone
		case len(q.items) > 0:
			v := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()

			return v, nil
		case q.sendClosed:
			q.mu.Unlock()

			return zero, io.EOF
		}

		changed := q.changed
		q.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// CloseSend marks the producing side as finished. It is idempotent.
func (q *Queue[T]) CloseSend() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sendClosed {
		return
	}

	q.sendClosed = true
	q.notifyLocked()
}

// CloseRecv marks the consuming side as gone and drops buffered items.
// It is idempotent.
func (q *Queue[T]) CloseRecv() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.recvClosed {
		return
	}

	q.recvClosed = true
	q.items = nil
	q.notifyLocked()
}

func (q *Queue[T]) notifyLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}
