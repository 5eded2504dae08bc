// Package audit records what happened at the gates. The log is the durability
// boundary for scan handling: a scan counts as committed once its event is
// appended, regardless of what notifications do afterwards.
package audit

import (
	"context"
	"time"
)

// Action names the recorded operation.
type Action string

const (
	ActionScanVerified      Action = "scan_verified"
	ActionScanRejected      Action = "scan_rejected"
	ActionSecurityHold      Action = "security_hold"
	ActionVisitCreated      Action = "visit_created"
	ActionVisitCheckedIn    Action = "visit_checked_in"
	ActionVisitCheckedOut   Action = "visit_checked_out"
	ActionVisitDenied       Action = "visit_denied"
	ActionAttendanceSignin  Action = "attendance_signin"
	ActionAttendanceSignout Action = "attendance_signout"
	ActionCredentialIssued  Action = "credential_issued"
	ActionCredentialRevoked Action = "credential_revoked"
	ActionFlagRaised        Action = "flag_raised"
	ActionOperatorLogin     Action = "operator_login"
)

// Event is one audit record. SubjectType and SubjectID identify the entity
// acted on (visitor, employee, visit, credential); Actor is the operator or
// device that caused it.
type Event struct {
	ID          int64     `json:"event_id"`
	Action      Action    `json:"action"`
	SubjectType string    `json:"subject_type"`
	SubjectID   int64     `json:"subject_id"`
	Outcome     string    `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	Device      string    `json:"device,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Filter narrows a listing. Zero values mean "any".
type Filter struct {
	Action      Action
	SubjectType string
	SubjectID   int64
	From        time.Time
	To          time.Time
	Limit       int
}

// Store is the durable audit log.
type Store interface {
	Append(ctx context.Context, e Event) (Event, error)
	List(ctx context.Context, f Filter) ([]Event, error)
}

// Sink receives a best-effort copy of each event, for downstream pipelines.
// Sink failures never affect the durable log.
type Sink interface {
	Publish(ctx context.Context, e Event) error
	Close()
}
