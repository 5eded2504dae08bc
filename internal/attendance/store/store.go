// Package store persists attendance events. Appends enforce direction
// alternation per credential atomically; callers never pre-read the latest
// event to decide whether a toggle is legal.
package store

import (
	"context"
	"time"

	"gatepass/internal/attendance/models"
)

// Store is the attendance event log.
type Store interface {
	// Append records e if and only if it preserves alternation for
	// e.CredentialID: signin requires no prior event or a signout last,
	// signout requires a signin last. A violated guard returns
	// sentinel.ErrConflict and writes nothing.
	Append(ctx context.Context, e models.Event) (models.Event, error)

	// Latest returns the most recent event for a credential, or
	// sentinel.ErrNotFound when the credential has no events.
	Latest(ctx context.Context, credentialID int64) (models.Event, error)

	// ListByEmployee returns all events for an employee with timestamps in
	// [from, to), in append order. Append order is authoritative: timestamp
	// inversions from clock skew are preserved for callers to judge.
	ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]models.Event, error)
}
