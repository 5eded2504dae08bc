package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gatepass/internal/credential/models"
	"gatepass/pkg/sentinel"
)

// PostgresStore persists credentials in PostgreSQL. Pure I/O; verdict logic
// and normalization policy belong to the service layer.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const credentialColumns = `credential_id, code_value, kind, subject_id, visit_id, issued_at, expires_at, status`

func (s *PostgresStore) Lookup(ctx context.Context, code string) (models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE code_value = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, code), "lookup credential")
}

func (s *PostgresStore) LookupByID(ctx context.Context, id int64) (models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE credential_id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id), "lookup credential by id")
}

func (s *PostgresStore) LookupTrimmed(ctx context.Context, code string) (models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE btrim(code_value) = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, code), "lookup trimmed credential")
}

func (s *PostgresStore) Rewrite(ctx context.Context, id int64, code string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET code_value = $1 WHERE credential_id = $2`, code, id)
	if err != nil {
		return fmt.Errorf("rewrite credential code: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, c models.Credential) (models.Credential, error) {
	query := `
		INSERT INTO credentials (code_value, kind, subject_id, visit_id, issued_at, expires_at, status)
		VALUES ($1, $2, $3, NULLIF($4, 0), $5, $6, $7)
		RETURNING credential_id
	`
	err := s.db.QueryRowContext(ctx, query,
		c.Code, string(c.Kind), c.SubjectID, c.VisitID, c.IssuedAt, c.ExpiresAt, string(c.Status),
	).Scan(&c.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return models.Credential{}, sentinel.ErrConflict
		}
		return models.Credential{}, fmt.Errorf("insert credential: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ActiveForVisit(ctx context.Context, visitID int64) (models.Credential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE visit_id = $1 AND status = 'active'
		ORDER BY issued_at DESC
		LIMIT 1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, visitID), "active credential for visit")
}

func (s *PostgresStore) MarkExpired(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, models.StatusExpired)
}

func (s *PostgresStore) MarkRevoked(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, models.StatusRevoked)
}

// setStatus only moves credentials out of active; expired and revoked are
// terminal.
func (s *PostgresStore) setStatus(ctx context.Context, id int64, status models.Status) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET status = $1 WHERE credential_id = $2 AND status = 'active'`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("set credential status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set credential status rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

type row interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(r row, op string) (models.Credential, error) {
	var c models.Credential
	var kind, status string
	var visitID sql.NullInt64
	var expiresAt sql.NullTime
	err := r.Scan(&c.ID, &c.Code, &kind, &c.SubjectID, &visitID, &c.IssuedAt, &expiresAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Credential{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Credential{}, fmt.Errorf("%s: %w", op, err)
	}
	c.Kind = models.Kind(kind)
	c.Status = models.Status(status)
	if visitID.Valid {
		c.VisitID = visitID.Int64
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
	}
	return c, nil
}
