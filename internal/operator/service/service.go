// Package service authenticates console operators and mints their API tokens.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gatepass/internal/directory"
	"gatepass/internal/jwtauth"
	"gatepass/pkg/audit"
	"gatepass/pkg/sentinel"
)

type OperatorReader interface {
	FindOperatorByUsername(ctx context.Context, username string) (directory.Operator, error)
	CreateOperator(ctx context.Context, o directory.Operator) (directory.Operator, error)
}

type Service struct {
	operators OperatorReader
	tokens    *jwtauth.Service
	auditLog  audit.Store
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAudit records successful logins. Login audit is informational; append
// failures are logged, not surfaced.
func WithAudit(store audit.Store) Option {
	return func(s *Service) { s.auditLog = store }
}

func New(operators OperatorReader, tokens *jwtauth.Service, opts ...Option) (*Service, error) {
	if operators == nil {
		return nil, errors.New("operator: operator store is required")
	}
	if tokens == nil {
		return nil, errors.New("operator: token service is required")
	}
	s := &Service{
		operators: operators,
		tokens:    tokens,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// LoginResult carries the minted token and the operator it identifies.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login checks credentials and mints a signed token. Unknown usernames and
// wrong passwords produce the same ErrNotFound so probing cannot tell them
// apart.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: username and password are required", sentinel.ErrInvalidState)
	}

	op, err := s.operators.FindOperatorByUsername(ctx, username)
	if errors.Is(err, sentinel.ErrNotFound) {
		return LoginResult{}, fmt.Errorf("%w: invalid credentials", sentinel.ErrNotFound)
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("find operator %q: %w", username, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)) != nil {
		s.logger.Warn("failed login attempt", "username", username)
		return LoginResult{}, fmt.Errorf("%w: invalid credentials", sentinel.ErrNotFound)
	}

	token, err := s.tokens.GenerateToken(strconv.FormatInt(op.ID, 10), op.Username, op.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("mint token for %q: %w", username, err)
	}

	if s.auditLog != nil {
		if _, aerr := s.auditLog.Append(ctx, audit.Event{
			Action:      audit.ActionOperatorLogin,
			SubjectType: "operator",
			SubjectID:   op.ID,
			Outcome:     "accepted",
			Actor:       op.Username,
			Timestamp:   s.now().UTC(),
		}); aerr != nil {
			s.logger.Warn("login audit append failed", "username", username, "error", aerr)
		}
	}
	return LoginResult{Token: token, Username: op.Username, Role: op.Role}, nil
}

// Register creates an operator with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, username, password, role string) (directory.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return directory.Operator{}, fmt.Errorf("%w: username and a password of at least 8 characters are required", sentinel.ErrInvalidState)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return directory.Operator{}, fmt.Errorf("hash password: %w", err)
	}
	op, err := s.operators.CreateOperator(ctx, directory.Operator{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return directory.Operator{}, fmt.Errorf("create operator %q: %w", username, err)
	}
	return op, nil
}
