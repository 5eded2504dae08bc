package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so checkpoint
// deployments can ship logs straight into an aggregator.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
