package models

import (
	attmodels "gatepass/internal/attendance/models"
	credmodels "gatepass/internal/credential/models"
	flagmodels "gatepass/internal/securityflag/models"
	visitmodels "gatepass/internal/visit/models"
)

// Outcome is the terminal state of a scan pipeline. SecurityHold is
// deliberately distinct from Rejected so a checkpoint operator can tell a bad
// badge from a barred visitor.
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeRejected     Outcome = "rejected"
	OutcomeSecurityHold Outcome = "security_hold"
	OutcomeNotAllowed   Outcome = "not_allowed"
)

// Result is the outward response for one scan event.
type Result struct {
	Outcome Outcome                 `json:"outcome"`
	Success bool                    `json:"success"`
	Reason  string                  `json:"reason,omitempty"`
	Verdict credmodels.Verdict      `json:"verdict"`
	VisitID int64                   `json:"visit_id,omitempty"`
	Visit   *visitmodels.Visit      `json:"visit,omitempty"`
	Toggle  *attmodels.ToggleResult `json:"attendance,omitempty"`
	Flags   []flagmodels.Flag       `json:"flags,omitempty"`
}
