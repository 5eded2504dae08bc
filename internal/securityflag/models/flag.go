package models

import "time"

// Flag is an administrative hold on a visitor. A flag is never deleted; it
// stays on record and simply stops gating once the credential it is linked to
// leaves the active state.
type Flag struct {
	ID           int64     `json:"flag_id"`
	VisitorID    int64     `json:"visitor_id"`
	CredentialID int64     `json:"credential_id"`
	Reason       string    `json:"reason"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}
