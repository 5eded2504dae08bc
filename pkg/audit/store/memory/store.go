package memory

import (
	"context"
	"sync"

	"gatepass/pkg/audit"
)

// Store keeps audit events in memory, for tests and dev runs.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
	nextID int64
}

func New() *Store {
	return &Store{nextID: 1}
}

func (s *Store) Append(_ context.Context, e audit.Event) (audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextID
	s.nextID++
	s.events = append(s.events, e)
	return e, nil
}

func (s *Store) List(_ context.Context, f audit.Filter) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	// Newest first.
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.SubjectType != "" && e.SubjectType != f.SubjectType {
			continue
		}
		if f.SubjectID != 0 && e.SubjectID != f.SubjectID {
			continue
		}
		if !f.From.IsZero() && e.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}
