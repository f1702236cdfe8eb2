// Package relay moves data between one pipe endpoint of a child process and
// one message queue.
//
// Each relay runs on its own goroutine, owns exactly one pipe endpoint and
// closes it before returning. A relay never reports failure by panicking or
// by returning an error; it returns a Termination describing why it stopped,
// which the runner aggregates into the run's result.
package relay
