package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gatepass/internal/visit/models"
	"gatepass/pkg/sentinel"
)

// PostgresStore persists visits in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const visitColumns = `visit_id, visitor_id, site_id, host_employee_id, purpose, status, checkin_time, checkout_time, created_at`

func (s *PostgresStore) Create(ctx context.Context, v models.Visit) (models.Visit, error) {
	query := `
		INSERT INTO visits (visitor_id, site_id, host_employee_id, purpose, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING visit_id, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		v.VisitorID, v.SiteID, v.HostEmployeeID, v.Purpose, string(v.Status),
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return models.Visit{}, fmt.Errorf("create visit: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) Find(ctx context.Context, id int64) (models.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE visit_id = $1`
	return scanVisit(s.db.QueryRowContext(ctx, query, id), "find visit")
}

// Transition is the single writer of visits.status. The WHERE guard makes the
// check-then-act atomic: a losing concurrent writer matches zero rows and
// observes ErrConflict instead of overwriting state. Timestamps are stamped
// via COALESCE so re-entry can never move an already-set time.
func (s *PostgresStore) Transition(ctx context.Context, id int64, from, to models.Status, now time.Time) (models.Visit, error) {
	query := `
		UPDATE visits
		SET status = $3,
		    checkin_time = CASE WHEN $3 = 'checked_in' THEN COALESCE(checkin_time, $4) ELSE checkin_time END,
		    checkout_time = CASE WHEN $3 = 'checked_out' THEN COALESCE(checkout_time, $4) ELSE checkout_time END
		WHERE visit_id = $1 AND status = $2
		RETURNING ` + visitColumns
	v, err := scanVisit(s.db.QueryRowContext(ctx, query, id, string(from), string(to), now), "transition visit")
	if errors.Is(err, sentinel.ErrNotFound) {
		// Distinguish a missing visit from a lost race.
		if _, findErr := s.Find(ctx, id); findErr == nil {
			return models.Visit{}, sentinel.ErrConflict
		} else if errors.Is(findErr, sentinel.ErrNotFound) {
			return models.Visit{}, sentinel.ErrNotFound
		} else {
			return models.Visit{}, findErr
		}
	}
	return v, err
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]models.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE status IN ('pending', 'checked_in')
		ORDER BY created_at DESC, visit_id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active visits: %w", err)
	}
	defer rows.Close()

	var visits []models.Visit
	for rows.Next() {
		v, err := scanVisit(rows, "list active visits")
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active visits: %w", err)
	}
	return visits, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanVisit(r row, op string) (models.Visit, error) {
	var v models.Visit
	var status string
	var host sql.NullInt64
	var purpose sql.NullString
	var checkin, checkout sql.NullTime
	err := r.Scan(&v.ID, &v.VisitorID, &v.SiteID, &host, &purpose, &status, &checkin, &checkout, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Visit{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Visit{}, fmt.Errorf("%s: %w", op, err)
	}
	v.Status = models.Status(status)
	if host.Valid {
		h := host.Int64
		v.HostEmployeeID = &h
	}
	if purpose.Valid {
		v.Purpose = purpose.String
	}
	if checkin.Valid {
		t := checkin.Time
		v.CheckinTime = &t
	}
	if checkout.Valid {
		t := checkout.Time
		v.CheckoutTime = &t
	}
	return v, nil
}
