// Package service exposes the security flag gate: reads for the scan pipeline
// and an administrative creation path.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	credmodels "gatepass/internal/credential/models"
	"gatepass/internal/directory"
	"gatepass/internal/securityflag/models"
	"gatepass/internal/securityflag/store"
	"gatepass/pkg/sentinel"
)

type CredentialReader interface {
	ActiveForVisit(ctx context.Context, visitID int64) (credmodels.Credential, error)
	LookupByID(ctx context.Context, id int64) (credmodels.Credential, error)
}

type DirectoryReader interface {
	FindVisitor(ctx context.Context, id int64) (directory.Visitor, error)
}

type Service struct {
	flags       store.Store
	credentials CredentialReader
	dir         DirectoryReader
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(flags store.Store, credentials CredentialReader, dir DirectoryReader, opts ...Option) (*Service, error) {
	if flags == nil {
		return nil, errors.New("securityflag: flag store is required")
	}
	if credentials == nil {
		return nil, errors.New("securityflag: credential reader is required")
	}
	if dir == nil {
		return nil, errors.New("securityflag: directory reader is required")
	}
	s := &Service{
		flags:       flags,
		credentials: credentials,
		dir:         dir,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Create raises a flag against a visitor, pinned to one of their credentials.
// The flag gates check-ins for as long as that credential stays active.
func (s *Service) Create(ctx context.Context, visitorID, credentialID int64, reason, createdBy string) (models.Flag, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.Flag{}, fmt.Errorf("%w: flag reason is required", sentinel.ErrInvalidState)
	}
	if _, err := s.dir.FindVisitor(ctx, visitorID); err != nil {
		return models.Flag{}, fmt.Errorf("resolve visitor %d: %w", visitorID, err)
	}
	cred, err := s.credentials.LookupByID(ctx, credentialID)
	if err != nil {
		return models.Flag{}, fmt.Errorf("resolve credential %d: %w", credentialID, err)
	}
	if cred.Kind != credmodels.KindVisitor || cred.SubjectID != visitorID {
		return models.Flag{}, fmt.Errorf("%w: credential %d does not belong to visitor %d", sentinel.ErrInvalidState, credentialID, visitorID)
	}

	f, err := s.flags.Create(ctx, models.Flag{
		VisitorID:    visitorID,
		CredentialID: credentialID,
		Reason:       reason,
		CreatedBy:    createdBy,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return models.Flag{}, fmt.Errorf("create flag for visitor %d: %w", visitorID, err)
	}
	s.logger.Info("security flag raised",
		"flag_id", f.ID, "visitor_id", visitorID, "created_by", createdBy)
	return f, nil
}

// ActiveFlags returns the flags currently holding a visitor at the gate. An
// empty slice means entry is allowed.
func (s *Service) ActiveFlags(ctx context.Context, visitorID int64) ([]models.Flag, error) {
	flags, err := s.flags.ActiveForVisitor(ctx, visitorID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("active flags for visitor %d: %w", visitorID, err)
	}
	return flags, nil
}

// AllActive lists every visitor currently under a hold.
func (s *Service) AllActive(ctx context.Context) ([]models.Flag, error) {
	flags, err := s.flags.ListActive(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list active flags: %w", err)
	}
	return flags, nil
}
