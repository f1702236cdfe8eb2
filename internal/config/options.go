package config

import (
	"log/slog"
	"time"
)

// DefaultChunkSize is the read size used for stdout and stderr when
// Options.ChunkSize is zero.
const DefaultChunkSize = 128

// Options configures a run.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// ChunkSize is the maximum number of bytes read from stdout or stderr
	// per chunk. If zero, DefaultChunkSize is used.
	ChunkSize int

	// KillGracePeriod, when positive, makes cancellation send SIGTERM first
	// and escalate to SIGKILL only if the process is still alive after the
	// period. When zero the process is killed immediately.
	KillGracePeriod time.Duration

	// SearchPaths are extra directories searched for the program after PATH.
	SearchPaths []string
}

// Apply applies functional options to a fresh Options struct.
func Apply[O ~func(*Options)](opts []O) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// NopLogger returns a logger whose handler drops every record without
// formatting it.
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LoggerOrNop returns o.Logger, or NopLogger when none is set.
func (o *Options) LoggerOrNop() *slog.Logger {
	if o == nil || o.Logger == nil {
		return NopLogger()
	}

	return o.Logger
}

// EffectiveChunkSize returns ChunkSize, or DefaultChunkSize when unset.
func (o *Options) EffectiveChunkSize() int {
	if o == nil || o.ChunkSize <= 0 {
		return DefaultChunkSize
	}

	return o.ChunkSize
}
