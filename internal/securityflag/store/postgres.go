package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gatepass/internal/securityflag/models"
	"gatepass/pkg/sentinel"
)

// PostgresStore keeps flags in security_flags and derives activity by joining
// the credentials table at query time.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, f models.Flag) (models.Flag, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO security_flags (visitor_id, credential_id, reason, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING flag_id`,
		f.VisitorID, f.CredentialID, f.Reason, f.CreatedBy, f.CreatedAt,
	).Scan(&f.ID)
	if err != nil {
		return models.Flag{}, fmt.Errorf("%w: insert flag: %v", sentinel.ErrUnavailable, err)
	}
	return f, nil
}

const activeFlagQuery = `
	SELECT f.flag_id, f.visitor_id, f.credential_id, f.reason, f.created_by, f.created_at
	FROM security_flags f
	JOIN credentials c ON c.credential_id = f.credential_id
	WHERE c.status = 'active'
	  AND (c.expires_at IS NULL OR c.expires_at > $1)`

func (s *PostgresStore) ActiveForVisitor(ctx context.Context, visitorID int64, now time.Time) ([]models.Flag, error) {
	rows, err := s.db.QueryContext(ctx,
		activeFlagQuery+` AND f.visitor_id = $2 ORDER BY f.created_at DESC, f.flag_id DESC`,
		now, visitorID)
	if err != nil {
		return nil, fmt.Errorf("%w: list flags for visitor %d: %v", sentinel.ErrUnavailable, visitorID, err)
	}
	return scanFlags(rows)
}

func (s *PostgresStore) ListActive(ctx context.Context, now time.Time) ([]models.Flag, error) {
	rows, err := s.db.QueryContext(ctx,
		activeFlagQuery+` ORDER BY f.created_at DESC, f.flag_id DESC`, now)
	if err != nil {
		return nil, fmt.Errorf("%w: list active flags: %v", sentinel.ErrUnavailable, err)
	}
	return scanFlags(rows)
}

func scanFlags(rows *sql.Rows) ([]models.Flag, error) {
	defer rows.Close()

	var out []models.Flag
	for rows.Next() {
		var f models.Flag
		if err := rows.Scan(&f.ID, &f.VisitorID, &f.CredentialID, &f.Reason, &f.CreatedBy, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan flag: %v", sentinel.ErrUnavailable, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate flags: %v", sentinel.ErrUnavailable, err)
	}
	return out, nil
}
