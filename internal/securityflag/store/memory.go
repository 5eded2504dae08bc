package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	credmodels "gatepass/internal/credential/models"
	"gatepass/internal/securityflag/models"
	"gatepass/pkg/sentinel"
)

// CredentialReader lets the memory store derive flag activity the way the
// Postgres store derives it with a join.
type CredentialReader interface {
	LookupByID(ctx context.Context, id int64) (credmodels.Credential, error)
}

// MemoryStore is an in-memory flag store for tests and dev runs.
type MemoryStore struct {
	mu          sync.RWMutex
	flags       []models.Flag
	nextID      int64
	credentials CredentialReader
}

func NewMemory(credentials CredentialReader) *MemoryStore {
	return &MemoryStore{nextID: 1, credentials: credentials}
}

func (s *MemoryStore) Create(_ context.Context, f models.Flag) (models.Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.ID = s.nextID
	s.nextID++
	s.flags = append(s.flags, f)
	return f, nil
}

func (s *MemoryStore) ActiveForVisitor(ctx context.Context, visitorID int64, now time.Time) ([]models.Flag, error) {
	return s.active(ctx, now, func(f models.Flag) bool { return f.VisitorID == visitorID })
}

func (s *MemoryStore) ListActive(ctx context.Context, now time.Time) ([]models.Flag, error) {
	return s.active(ctx, now, func(models.Flag) bool { return true })
}

func (s *MemoryStore) active(ctx context.Context, now time.Time, match func(models.Flag) bool) ([]models.Flag, error) {
	s.mu.RLock()
	flags := make([]models.Flag, len(s.flags))
	copy(flags, s.flags)
	s.mu.RUnlock()

	var out []models.Flag
	for _, f := range flags {
		if !match(f) {
			continue
		}
		cred, err := s.credentials.LookupByID(ctx, f.CredentialID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if cred.Status != credmodels.StatusActive || cred.ExpiredAt(now) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
