package store

import (
	"context"
	"strings"
	"sync"

	"gatepass/internal/credential/models"
	"gatepass/pkg/sentinel"
)

// MemoryStore is the in-memory credential store for unit tests and
// no-database dev mode. Semantics mirror the Postgres store, including the
// uniqueness conflict on insert.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[int64]models.Credential
	byCode map[string]int64
	nextID int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[int64]models.Credential),
		byCode: make(map[string]int64),
	}
}

func (s *MemoryStore) Lookup(_ context.Context, code string) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return models.Credential{}, sentinel.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) LookupByID(_ context.Context, id int64) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return models.Credential{}, sentinel.ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) LookupTrimmed(_ context.Context, code string) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byID {
		if strings.TrimSpace(c.Code) == code {
			return c, nil
		}
	}
	return models.Credential{}, sentinel.ErrNotFound
}

func (s *MemoryStore) Rewrite(_ context.Context, id int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byCode, c.Code)
	c.Code = code
	s.byID[id] = c
	s.byCode[code] = id
	return nil
}

func (s *MemoryStore) Insert(_ context.Context, c models.Credential) (models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byCode[c.Code]; exists {
		return models.Credential{}, sentinel.ErrConflict
	}
	s.nextID++
	c.ID = s.nextID
	s.byID[c.ID] = c
	s.byCode[c.Code] = c.ID
	return c, nil
}

func (s *MemoryStore) ActiveForVisit(_ context.Context, visitID int64) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest models.Credential
	found := false
	for _, c := range s.byID {
		if c.VisitID != visitID || c.Status != models.StatusActive {
			continue
		}
		if !found || c.IssuedAt.After(latest.IssuedAt) {
			latest = c
			found = true
		}
	}
	if !found {
		return models.Credential{}, sentinel.ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) MarkExpired(ctx context.Context, id int64) error {
	return s.setStatus(id, models.StatusExpired)
}

func (s *MemoryStore) MarkRevoked(ctx context.Context, id int64) error {
	return s.setStatus(id, models.StatusRevoked)
}

func (s *MemoryStore) setStatus(id int64, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.Status != models.StatusActive {
		return sentinel.ErrInvalidState
	}
	c.Status = status
	s.byID[id] = c
	return nil
}
