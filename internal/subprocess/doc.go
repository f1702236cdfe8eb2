// Package subprocess runs a single child process with its standard streams
// relayed through message queues.
//
// Run spawns the process with three pipes and returns Handles immediately.
// Five goroutines serve the run:
//
//   - the stdin relay drains the stdin queue into the input pipe,
//   - the stdout and stderr relays read their pipes in fixed-size chunks and
//     push decoded text onto the output queues,
//   - the watcher waits for cancellation and kills the process,
//   - the reaper waits for both output relays and then reaps the process.
//
// Handles.Wait and Handles.Done report when every one of them has finished.
// The stdin relay only finishes once the caller closes the stdin handle, a
// write fails, or the run is cancelled, so a caller that waits must do one of
// those.
package subprocess
