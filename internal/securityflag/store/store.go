// Package store persists security flags. Activity is derived, not stored: a
// flag gates entry only while its linked credential is still active and
// unexpired at query time.
package store

import (
	"context"
	"time"

	"gatepass/internal/securityflag/models"
)

type Store interface {
	// Create records a flag and returns it with its assigned id.
	Create(ctx context.Context, f models.Flag) (models.Flag, error)

	// ActiveForVisitor returns the flags currently gating one visitor,
	// newest first. An empty slice means the visitor may enter.
	ActiveForVisitor(ctx context.Context, visitorID int64, now time.Time) ([]models.Flag, error)

	// ListActive returns every currently gating flag, newest first.
	ListActive(ctx context.Context, now time.Time) ([]models.Flag, error)
}
