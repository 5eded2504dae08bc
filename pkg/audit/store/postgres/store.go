package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gatepass/pkg/audit"
	"gatepass/pkg/sentinel"
)

// Store persists audit events in the audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, e audit.Event) (audit.Event, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO audit_events (action, subject_type, subject_id, outcome, reason, actor, device, request_id, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING event_id`,
		e.Action, e.SubjectType, e.SubjectID, e.Outcome, e.Reason, e.Actor, e.Device, e.RequestID, e.Timestamp,
	).Scan(&e.ID)
	if err != nil {
		return audit.Event{}, fmt.Errorf("%w: insert audit event: %v", sentinel.ErrUnavailable, err)
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, f audit.Filter) ([]audit.Event, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.SubjectType != "" {
		add("subject_type = $%d", f.SubjectType)
	}
	if f.SubjectID != 0 {
		add("subject_id = $%d", f.SubjectID)
	}
	if !f.From.IsZero() {
		add("ts >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("ts < $%d", f.To)
	}

	q := `SELECT event_id, action, subject_type, subject_id, outcome, reason, actor, device, request_id, ts
	      FROM audit_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY ts DESC, event_id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list audit events: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(&e.ID, &e.Action, &e.SubjectType, &e.SubjectID, &e.Outcome, &e.Reason, &e.Actor, &e.Device, &e.RequestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: scan audit event: %v", sentinel.ErrUnavailable, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate audit events: %v", sentinel.ErrUnavailable, err)
	}
	return out, nil
}
