// Package procpipe runs an external process and exposes its standard
// streams as ordered queues of text chunks.
//
// Run spawns the process and returns immediately. The caller sends input
// through Handles.Stdin and receives output from Handles.Stdout and
// Handles.Stderr while the process keeps running in the background. A value
// published on the cancellation subscription, or the context becoming done,
// kills the process.
//
// # Basic Usage
//
//	b := procpipe.NewBroadcaster()
//	defer b.Close()
//
//	h, err := procpipe.Run(ctx, &procpipe.Command{Program: "cat"}, b.Subscribe())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = h.Stdin.Send("ping\n")
//	_ = h.Stdin.Close()
//
//	for chunk, err := range h.Stdout.Chunks(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Print(chunk)
//	}
//
//	result, err := h.Wait()
//
// Chunks are decoded as UTF-8. Invalid bytes are replaced with U+FFFD, and a
// character split across two reads is reassembled rather than replaced.
//
// # Lifecycle
//
// Handles.Wait returns once the process has been reaped and every relay has
// stopped. The stdin relay stops when the stdin handle is closed, when a
// write to the process fails, or on cancellation, so close the stdin handle
// before waiting on a process that exits by itself. WithRun does this for
// you.
//
// # Cancellation
//
// The subscription is a receive-only channel. A received value cancels the
// run: the stdin handle is closed and the process is killed together with
// its process group, immediately or after WithKillGracePeriod. A value that
// arrives after the process exited on its own still closes the stdin handle. Stdout and stderr keep delivering whatever the
// process wrote before it died and then end. A closed subscription without a
// value disarms it. NewBroadcaster provides a one-shot broadcaster whose
// Publish is idempotent.
//
// # Error Handling
//
// Only spawning reports errors synchronously:
//
//	h, err := procpipe.Run(ctx, cmd, nil)
//	if notFound, ok := errors.AsType[*procpipe.ProgramNotFoundError](err); ok {
//	    log.Fatalf("program not found, searched: %v", notFound.SearchedPaths)
//	}
//
// Everything that goes wrong later is reported by Handles.Wait: relay I/O
// failures as RelayError, and an unsuccessful exit of a process that was not
// cancelled as ProcessError. Result records why each worker stopped.
package procpipe
