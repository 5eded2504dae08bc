package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// SMTPNotifier sends plain-text mail over STARTTLS-capable SMTP.
type SMTPNotifier struct {
	host     string
	port     int
	sender   string
	password string
	logger   *slog.Logger
}

func NewSMTP(host string, port int, sender, password string, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		host:     host,
		port:     port,
		sender:   sender,
		password: password,
		logger:   logger,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("notification recipient is empty")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.sender)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.sender, n.password, n.host)
	err := smtp.SendMail(addr, auth, n.sender, []string{msg.To}, []byte(b.String()))
	if err != nil {
		n.logger.WarnContext(ctx, "notification delivery failed",
			"to", msg.To,
			"subject", msg.Subject,
			"error", err,
		)
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
