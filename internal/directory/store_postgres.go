package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gatepass/pkg/sentinel"
)

// PostgresStore persists directory entities in PostgreSQL. Pure I/O; no
// domain rules live here.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateVisitor(ctx context.Context, v Visitor) (Visitor, error) {
	query := `
		INSERT INTO visitors (full_name, national_id, contact_number)
		VALUES ($1, $2, $3)
		RETURNING visitor_id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, v.FullName, v.NationalID, v.ContactNumber).
		Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return Visitor{}, fmt.Errorf("create visitor: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) FindVisitor(ctx context.Context, id int64) (Visitor, error) {
	query := `
		SELECT visitor_id, full_name, national_id, contact_number, created_at
		FROM visitors
		WHERE visitor_id = $1
	`
	var v Visitor
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&v.ID, &v.FullName, &v.NationalID, &v.ContactNumber, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Visitor{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Visitor{}, fmt.Errorf("find visitor: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	query := `
		INSERT INTO employees (name, hourly_rate, department)
		VALUES ($1, $2, $3)
		RETURNING employee_id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, e.Name, e.HourlyRate, e.Department).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return Employee{}, fmt.Errorf("create employee: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) FindEmployee(ctx context.Context, id int64) (Employee, error) {
	query := `
		SELECT employee_id, name, hourly_rate, department, created_at
		FROM employees
		WHERE employee_id = $1
	`
	var e Employee
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&e.ID, &e.Name, &e.HourlyRate, &e.Department, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Employee{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Employee{}, fmt.Errorf("find employee: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) CreateSite(ctx context.Context, site Site) (Site, error) {
	query := `
		INSERT INTO sites (site_name, address)
		VALUES ($1, $2)
		RETURNING site_id
	`
	err := s.db.QueryRowContext(ctx, query, site.Name, site.Address).Scan(&site.ID)
	if err != nil {
		return Site{}, fmt.Errorf("create site: %w", err)
	}
	return site, nil
}

func (s *PostgresStore) FindSite(ctx context.Context, id int64) (Site, error) {
	query := `SELECT site_id, site_name, address FROM sites WHERE site_id = $1`
	var site Site
	err := s.db.QueryRowContext(ctx, query, id).Scan(&site.ID, &site.Name, &site.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return Site{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Site{}, fmt.Errorf("find site: %w", err)
	}
	return site, nil
}

func (s *PostgresStore) FindOperatorByUsername(ctx context.Context, username string) (Operator, error) {
	query := `
		SELECT operator_id, username, password_hash, role
		FROM operators
		WHERE username = $1
	`
	var o Operator
	err := s.db.QueryRowContext(ctx, query, username).
		Scan(&o.ID, &o.Username, &o.PasswordHash, &o.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return Operator{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Operator{}, fmt.Errorf("find operator: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) CreateOperator(ctx context.Context, o Operator) (Operator, error) {
	query := `
		INSERT INTO operators (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING operator_id
	`
	err := s.db.QueryRowContext(ctx, query, o.Username, o.PasswordHash, o.Role).Scan(&o.ID)
	if err != nil {
		return Operator{}, fmt.Errorf("create operator: %w", err)
	}
	return o, nil
}
