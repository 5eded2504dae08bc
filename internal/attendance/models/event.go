package models

import "time"

// Direction is the kind of attendance scan. Events for a credential must
// alternate direction starting with signin; the invariant is derived from the
// latest event, never stored.
type Direction string

const (
	DirectionSignin  Direction = "signin"
	DirectionSignout Direction = "signout"
)

// Known reports whether d is a defined direction.
func (d Direction) Known() bool {
	return d == DirectionSignin || d == DirectionSignout
}

// Event is one employee scan. EmployeeID is denormalized from the credential
// at append time so aggregations never need a join.
type Event struct {
	ID           int64     `json:"event_id"`
	CredentialID int64     `json:"credential_id"`
	EmployeeID   int64     `json:"employee_id"`
	Direction    Direction `json:"direction"`
	Timestamp    time.Time `json:"timestamp"`
}

// RejectReason explains a refused toggle so checkpoint operators can act.
type RejectReason string

const (
	RejectNone               RejectReason = ""
	RejectCredentialNotFound RejectReason = "credential_not_found"
	RejectCredentialExpired  RejectReason = "credential_expired"
	RejectCredentialInactive RejectReason = "credential_inactive"
	RejectNotEmployee        RejectReason = "not_employee_credential"
	RejectAlreadySignedIn    RejectReason = "already_signed_in"
	RejectNotSignedIn        RejectReason = "not_signed_in"
	RejectBadDirection       RejectReason = "invalid_direction"
)

// ToggleResult is the typed outcome of a toggle attempt. Rejections are
// expected outcomes, not errors; the Reason and Message say why.
type ToggleResult struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
	Message  string       `json:"message"`

	Event        *Event `json:"event,omitempty"`
	EmployeeID   int64  `json:"employee_id,omitempty"`
	EmployeeName string `json:"employee_name,omitempty"`

	// Late is set only for accepted signins after the cutoff.
	Late bool `json:"late"`
	// LateCount is the rolling-window late total including this event.
	LateCount int `json:"late_count,omitempty"`
	// ThresholdReached reports the window total meeting the alert threshold.
	ThresholdReached bool `json:"threshold_reached"`
	// ThresholdCrossed is true only when this signin is the one that moved
	// the count onto the threshold; it drives the one-shot alert.
	ThresholdCrossed bool `json:"-"`
}

// WorkSegment is one signin→signout pairing inside an earnings window.
type WorkSegment struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Hours float64   `json:"hours"`
	// Incomplete marks a trailing signin with no signout; its hours run to
	// the end of that calendar day at most, never into fabricated days.
	Incomplete bool `json:"incomplete"`
}

// EarningsEstimate is a derived pay projection over a trailing window.
type EarningsEstimate struct {
	EmployeeID int64         `json:"employee_id"`
	WindowDays int           `json:"window_days"`
	HourlyRate float64       `json:"hourly_rate"`
	TotalHours float64       `json:"total_hours"`
	Pay        float64       `json:"pay"`
	Segments   []WorkSegment `json:"segments"`
}

// LateReport is the rolling-window late count for one employee.
type LateReport struct {
	EmployeeID       int64 `json:"employee_id"`
	WindowDays       int   `json:"window_days"`
	Count            int   `json:"count"`
	ThresholdReached bool  `json:"threshold_reached"`
}
