// Package service owns the visit state machine. All status mutations go
// through Transition so the stamped timestamps have a single source of truth.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gatepass/internal/directory"
	"gatepass/internal/visit/models"
	"gatepass/internal/visit/store"
	"gatepass/pkg/sentinel"
)

// DirectoryReader is the slice of the directory the visit service needs for
// referential checks at creation time.
type DirectoryReader interface {
	FindVisitor(ctx context.Context, id int64) (directory.Visitor, error)
	FindEmployee(ctx context.Context, id int64) (directory.Employee, error)
	FindSite(ctx context.Context, id int64) (directory.Site, error)
}

type Service struct {
	store     store.Store
	directory DirectoryReader
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock sets the time source for testability.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(st store.Store, dir DirectoryReader, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("visit store is required")
	}
	if dir == nil {
		return nil, errors.New("directory reader is required")
	}
	svc := &Service{
		store:     st,
		directory: dir,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateRequest registers a new visit.
type CreateRequest struct {
	VisitorID      int64
	SiteID         int64
	HostEmployeeID *int64
	Purpose        string
}

// Create registers a visit in pending status after checking that the visitor,
// site, and optional host employee exist.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Visit, error) {
	if _, err := s.directory.FindVisitor(ctx, req.VisitorID); err != nil {
		return models.Visit{}, fmt.Errorf("visitor %d: %w", req.VisitorID, err)
	}
	if _, err := s.directory.FindSite(ctx, req.SiteID); err != nil {
		return models.Visit{}, fmt.Errorf("site %d: %w", req.SiteID, err)
	}
	if req.HostEmployeeID != nil {
		if _, err := s.directory.FindEmployee(ctx, *req.HostEmployeeID); err != nil {
			return models.Visit{}, fmt.Errorf("host employee %d: %w", *req.HostEmployeeID, err)
		}
	}

	visit, err := s.store.Create(ctx, models.Visit{
		VisitorID:      req.VisitorID,
		SiteID:         req.SiteID,
		HostEmployeeID: req.HostEmployeeID,
		Purpose:        req.Purpose,
		Status:         models.StatusPending,
	})
	if err != nil {
		return models.Visit{}, err
	}

	s.logger.InfoContext(ctx, "visit created",
		"visit_id", visit.ID,
		"visitor_id", visit.VisitorID,
		"site_id", visit.SiteID,
	)
	return visit, nil
}

// Find returns a visit by ID.
func (s *Service) Find(ctx context.Context, id int64) (models.Visit, error) {
	return s.store.Find(ctx, id)
}

// Transition attempts to move a visit to the target status. It returns false
// with no mutation when the visit does not exist, the target is not a legal
// edge from the current status, or a concurrent writer moved the visit first.
// The returned error is reserved for storage failures.
func (s *Service) Transition(ctx context.Context, visitID int64, target models.Status) (bool, error) {
	if !target.Known() {
		return false, nil
	}

	current, err := s.store.Find(ctx, visitID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !current.Status.CanTransitionTo(target) {
		s.logger.InfoContext(ctx, "visit transition refused",
			"visit_id", visitID,
			"from", current.Status,
			"to", target,
		)
		return false, nil
	}

	_, err = s.store.Transition(ctx, visitID, current.Status, target, s.now())
	if errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrNotFound) {
		// Lost the race; the winning scan already moved the visit.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "visit transitioned",
		"visit_id", visitID,
		"from", current.Status,
		"to", target,
	)
	return true, nil
}

// Active lists visits in pending or checked_in status.
func (s *Service) Active(ctx context.Context) ([]models.Visit, error) {
	return s.store.ListActive(ctx)
}
