package procpipe

import (
	"log/slog"
	"time"

	"github.com/wagiedev/procpipe/internal/config"
)

// Options configures a run.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithChunkSize sets the maximum number of bytes read from stdout or stderr
// per chunk. The default is 128.
func WithChunkSize(size int) Option {
	return func(o *Options) {
		o.ChunkSize = size
	}
}

// WithKillGracePeriod makes cancellation send SIGTERM first and SIGKILL only
// if the process is still running after d.
func WithKillGracePeriod(d time.Duration) Option {
	return func(o *Options) {
		o.KillGracePeriod = d
	}
}

// WithSearchPaths adds directories searched for the program after PATH.
func WithSearchPaths(dirs ...string) Option {
	return func(o *Options) {
		o.SearchPaths = append(o.SearchPaths, dirs...)
	}
}

// WithOptions replaces all options with a prepared Options value. Options
// listed after it still apply on top.
func WithOptions(options *Options) Option {
	return func(o *Options) {
		if options != nil {
			*o = *options
		}
	}
}
