// Package store persists credentials. Lookups are exact-match on the
// normalized code value; LookupTrimmed exists only for the one-time self-heal
// of legacy rows stored with whitespace drift.
package store

import (
	"context"

	"gatepass/internal/credential/models"
)

type Store interface {
	// Lookup finds a credential by exact code value.
	// Returns sentinel.ErrNotFound when absent.
	Lookup(ctx context.Context, code string) (models.Credential, error)

	// LookupByID finds a credential by its identifier.
	LookupByID(ctx context.Context, id int64) (models.Credential, error)

	// LookupTrimmed matches on the trimmed stored value. Used as a fallback
	// when an exact lookup misses, so drifted rows can be found and healed.
	LookupTrimmed(ctx context.Context, code string) (models.Credential, error)

	// Rewrite replaces the stored code value. One-time normalization of a
	// drifted row; the caller supplies the normalized value.
	Rewrite(ctx context.Context, id int64, code string) error

	// Insert stores a new credential. Returns sentinel.ErrConflict when the
	// code value already exists; callers retry with a fresh suffix.
	Insert(ctx context.Context, c models.Credential) (models.Credential, error)

	// ActiveForVisit returns the most recently issued active credential for a
	// visit, or sentinel.ErrNotFound.
	ActiveForVisit(ctx context.Context, visitID int64) (models.Credential, error)

	MarkExpired(ctx context.Context, id int64) error
	MarkRevoked(ctx context.Context, id int64) error
}
