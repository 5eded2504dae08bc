// Package store persists visits. The status column is only ever written
// through Transition's conditional update so concurrent scans cannot both
// move the same visit.
package store

import (
	"context"
	"time"

	"gatepass/internal/visit/models"
)

type Store interface {
	Create(ctx context.Context, v models.Visit) (models.Visit, error)

	// Find returns sentinel.ErrNotFound when the visit does not exist.
	Find(ctx context.Context, id int64) (models.Visit, error)

	// Transition atomically moves a visit from the expected status to the
	// target status, stamping checkin/checkout time on first entry only.
	// Returns sentinel.ErrConflict when the visit exists but its status no
	// longer matches from (a concurrent writer won), sentinel.ErrNotFound
	// when the visit is absent.
	Transition(ctx context.Context, id int64, from, to models.Status, now time.Time) (models.Visit, error)

	// ListActive returns visits in pending or checked_in status.
	ListActive(ctx context.Context) ([]models.Visit, error)
}
