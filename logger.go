package procpipe

import (
	"log/slog"

	"github.com/wagiedev/procpipe/internal/config"
)

// NopLogger returns a logger that discards all output. It is what runs use
// when no logger is configured.
func NopLogger() *slog.Logger {
	return config.NopLogger()
}
