package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gatepass/internal/attendance/models"
	"gatepass/pkg/sentinel"
)

// PostgresStore keeps attendance events in the attendance_events table.
//
// Alternation is enforced inside a transaction that first takes a per-credential
// advisory lock, so two concurrent scans of the same badge serialize and exactly
// one of a double-signin pair wins.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `event_id, credential_id, employee_id, direction, ts`

func (s *PostgresStore) Append(ctx context.Context, e models.Event) (models.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Event{}, fmt.Errorf("%w: begin append: %v", sentinel.ErrUnavailable, err)
	}
	defer tx.Rollback()

	// Lock is keyed by credential, scoped to this transaction.
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('attendance:' || $1::text))`, e.CredentialID,
	); err != nil {
		return models.Event{}, fmt.Errorf("%w: lock credential %d: %v", sentinel.ErrUnavailable, e.CredentialID, err)
	}

	var last sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT direction FROM attendance_events
		 WHERE credential_id = $1
		 ORDER BY event_id DESC
		 LIMIT 1`, e.CredentialID,
	).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, fmt.Errorf("%w: read latest event: %v", sentinel.ErrUnavailable, err)
	}

	switch e.Direction {
	case models.DirectionSignin:
		if last.Valid && last.String == string(models.DirectionSignin) {
			return models.Event{}, fmt.Errorf("%w: credential %d already signed in", sentinel.ErrConflict, e.CredentialID)
		}
	case models.DirectionSignout:
		if !last.Valid || last.String != string(models.DirectionSignin) {
			return models.Event{}, fmt.Errorf("%w: credential %d not signed in", sentinel.ErrConflict, e.CredentialID)
		}
	default:
		return models.Event{}, fmt.Errorf("%w: direction %q", sentinel.ErrInvalidState, e.Direction)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO attendance_events (credential_id, employee_id, direction, ts)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+eventColumns,
		e.CredentialID, e.EmployeeID, e.Direction, e.Timestamp,
	).Scan(&e.ID, &e.CredentialID, &e.EmployeeID, &e.Direction, &e.Timestamp)
	if err != nil {
		return models.Event{}, fmt.Errorf("%w: insert event: %v", sentinel.ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return models.Event{}, fmt.Errorf("%w: commit append: %v", sentinel.ErrUnavailable, err)
	}
	return e, nil
}

func (s *PostgresStore) Latest(ctx context.Context, credentialID int64) (models.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM attendance_events
		 WHERE credential_id = $1
		 ORDER BY event_id DESC
		 LIMIT 1`, credentialID)

	var e models.Event
	err := row.Scan(&e.ID, &e.CredentialID, &e.EmployeeID, &e.Direction, &e.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, fmt.Errorf("%w: no events for credential %d", sentinel.ErrNotFound, credentialID)
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("%w: read latest event: %v", sentinel.ErrUnavailable, err)
	}
	return e, nil
}

func (s *PostgresStore) ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM attendance_events
		 WHERE employee_id = $1 AND ts >= $2 AND ts < $3
		 ORDER BY event_id ASC`,
		employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.CredentialID, &e.EmployeeID, &e.Direction, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: scan event: %v", sentinel.ErrUnavailable, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate events: %v", sentinel.ErrUnavailable, err)
	}
	return out, nil
}
