// Package worker fans audit events out to a sink on a background goroutine so
// scan handling never waits on the mirror.
package worker

import (
	"context"
	"log/slog"

	"gatepass/pkg/audit"
)

// Worker consumes audit events from an inbox channel and publishes them to a
// sink. Publish failures are logged and skipped; the durable store has already
// accepted the event by the time it reaches the inbox.
type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.Warn("audit mirror publish failed",
					"action", event.Action, "error", err)
			}
		}
	}
}
