package procpipe

import (
	"iter"
	"strings"
)

// ChunksFromSlice creates a chunk sequence from a slice of strings.
// This is useful with StdinSender.SendAll for a fixed input.
func ChunksFromSlice(chunks []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, chunk := range chunks {
			if !yield(chunk) {
				return
			}
		}
	}
}

// ChunksFromChannel creates a chunk sequence from a channel.
// The iterator completes when the channel is closed.
func ChunksFromChannel(ch <-chan string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for chunk := range ch {
			if !yield(chunk) {
				return
			}
		}
	}
}

// Lines creates a chunk sequence with one newline-terminated chunk per line.
func Lines(lines ...string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}

			if !yield(line) {
				return
			}
		}
	}
}
