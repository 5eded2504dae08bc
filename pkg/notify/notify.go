// Package notify delivers best-effort outbound notifications. Delivery
// failure is swallowed and logged by implementations; callers must never
// depend on a send succeeding.
package notify

import "context"

// Message is a deliverable notification payload.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier attempts delivery of a message. Implementations log failures and
// return them for metrics, but callers treat every send as fire-and-forget.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
