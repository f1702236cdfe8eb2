// Package queue implements the unbounded, ordered message queue that backs
// each of a run's three stdio handles.
//
// A Queue has one producing side and one consuming side. The producer pushes
// without ever blocking; the consumer pops in push order and blocks while the
// queue is empty. Either side can close its end independently:
//
//   - CloseSend means no more items will arrive. Pop drains what is buffered
//     and then reports io.EOF.
//   - CloseRecv means the consumer went away. Buffered items are discarded and
//     further pushes fail with ErrReceiverGone.
package queue
