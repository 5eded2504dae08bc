package models

import "time"

// Status is a visit's position in its lifecycle. Transitions are monotonic
// through a fixed directed graph; there are no backward edges.
type Status string

const (
	StatusPending    Status = "pending"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusDenied     Status = "denied"
)

// transitions is the full edge set. checked_out and denied are terminal.
var transitions = map[Status]map[Status]bool{
	StatusPending:    {StatusCheckedIn: true, StatusDenied: true},
	StatusCheckedIn:  {StatusCheckedOut: true},
	StatusCheckedOut: {},
	StatusDenied:     {},
}

// CanTransitionTo reports whether the edge from s to target exists.
func (s Status) CanTransitionTo(target Status) bool {
	return transitions[s][target]
}

// Known reports whether s is one of the four defined statuses.
func (s Status) Known() bool {
	_, ok := transitions[s]
	return ok
}

// Visit records a single visitor's presence request and lifecycle at a site.
// Rows are never deleted; terminal visits are retained for audit.
type Visit struct {
	ID             int64      `json:"visit_id"`
	VisitorID      int64      `json:"visitor_id"`
	SiteID         int64      `json:"site_id"`
	HostEmployeeID *int64     `json:"host_employee_id,omitempty"`
	Purpose        string     `json:"purpose,omitempty"`
	Status         Status     `json:"status"`
	CheckinTime    *time.Time `json:"checkin_time,omitempty"`
	CheckoutTime   *time.Time `json:"checkout_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
