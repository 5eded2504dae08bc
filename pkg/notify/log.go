package notify

import (
	"context"
	"log/slog"
)

// LogNotifier records notifications instead of delivering them. Used when
// SMTP is unconfigured so the rest of the pipeline behaves identically in
// development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "notification (log only)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
