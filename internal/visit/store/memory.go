package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"gatepass/internal/visit/models"
	"gatepass/pkg/sentinel"
)

// MemoryStore is the in-memory visit store. The mutex gives Transition the
// same compare-and-swap semantics as the Postgres conditional update.
type MemoryStore struct {
	mu     sync.RWMutex
	visits map[int64]models.Visit
	nextID int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{visits: make(map[int64]models.Visit)}
}

func (s *MemoryStore) Create(_ context.Context, v models.Visit) (models.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	v.ID = s.nextID
	v.CreatedAt = time.Now()
	s.visits[v.ID] = v
	return v, nil
}

func (s *MemoryStore) Find(_ context.Context, id int64) (models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visits[id]
	if !ok {
		return models.Visit{}, sentinel.ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Transition(_ context.Context, id int64, from, to models.Status, now time.Time) (models.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[id]
	if !ok {
		return models.Visit{}, sentinel.ErrNotFound
	}
	if v.Status != from {
		return models.Visit{}, sentinel.ErrConflict
	}
	v.Status = to
	if to == models.StatusCheckedIn && v.CheckinTime == nil {
		t := now
		v.CheckinTime = &t
	}
	if to == models.StatusCheckedOut && v.CheckoutTime == nil {
		t := now
		v.CheckoutTime = &t
	}
	s.visits[id] = v
	return v, nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var visits []models.Visit
	for _, v := range s.visits {
		if v.Status == models.StatusPending || v.Status == models.StatusCheckedIn {
			visits = append(visits, v)
		}
	}
	sort.Slice(visits, func(i, j int) bool { return visits[i].ID > visits[j].ID })
	return visits, nil
}
