package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gatepass/internal/attendance/models"
	"gatepass/pkg/sentinel"
)

// MemoryStore is an in-memory event log for tests and single-node dev runs.
// The mutex gives the same per-append atomicity the Postgres store gets from
// its advisory lock.
type MemoryStore struct {
	mu     sync.Mutex
	events []models.Event
	nextID int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Append(_ context.Context, e models.Event) (models.Event, error) {
	if !e.Direction.Known() {
		return models.Event{}, fmt.Errorf("%w: direction %q", sentinel.ErrInvalidState, e.Direction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.latestLocked(e.CredentialID)
	switch e.Direction {
	case models.DirectionSignin:
		if ok && last.Direction == models.DirectionSignin {
			return models.Event{}, fmt.Errorf("%w: credential %d already signed in", sentinel.ErrConflict, e.CredentialID)
		}
	case models.DirectionSignout:
		if !ok || last.Direction != models.DirectionSignin {
			return models.Event{}, fmt.Errorf("%w: credential %d not signed in", sentinel.ErrConflict, e.CredentialID)
		}
	}

	e.ID = s.nextID
	s.nextID++
	s.events = append(s.events, e)
	return e, nil
}

func (s *MemoryStore) Latest(_ context.Context, credentialID int64) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.latestLocked(credentialID)
	if !ok {
		return models.Event{}, fmt.Errorf("%w: no events for credential %d", sentinel.ErrNotFound, credentialID)
	}
	return last, nil
}

func (s *MemoryStore) ListByEmployee(_ context.Context, employeeID int64, from, to time.Time) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Event
	for _, e := range s.events {
		if e.EmployeeID != employeeID {
			continue
		}
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		out = append(out, e)
	}
	// Append order, not timestamp order: a rolled-back clock must surface as
	// a non-monotonic pair, never get silently reordered.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) latestLocked(credentialID int64) (models.Event, bool) {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].CredentialID == credentialID {
			return s.events[i], true
		}
	}
	return models.Event{}, false
}
