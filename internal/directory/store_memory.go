package directory

import (
	"context"
	"sync"
	"time"

	"gatepass/pkg/sentinel"
)

// MemoryStore is the in-memory directory used by unit tests and no-database
// dev mode. Same contract as the Postgres store.
type MemoryStore struct {
	mu        sync.RWMutex
	visitors  map[int64]Visitor
	employees map[int64]Employee
	sites     map[int64]Site
	operators map[string]Operator
	nextID    int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		visitors:  make(map[int64]Visitor),
		employees: make(map[int64]Employee),
		sites:     make(map[int64]Site),
		operators: make(map[string]Operator),
	}
}

func (s *MemoryStore) next() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) CreateVisitor(_ context.Context, v Visitor) (Visitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.next()
	v.CreatedAt = time.Now()
	s.visitors[v.ID] = v
	return v, nil
}

func (s *MemoryStore) FindVisitor(_ context.Context, id int64) (Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visitors[id]
	if !ok {
		return Visitor{}, sentinel.ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) CreateEmployee(_ context.Context, e Employee) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.next()
	e.CreatedAt = time.Now()
	s.employees[e.ID] = e
	return e, nil
}

func (s *MemoryStore) FindEmployee(_ context.Context, id int64) (Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return Employee{}, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) CreateSite(_ context.Context, site Site) (Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site.ID = s.next()
	s.sites[site.ID] = site
	return site, nil
}

func (s *MemoryStore) FindSite(_ context.Context, id int64) (Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[id]
	if !ok {
		return Site{}, sentinel.ErrNotFound
	}
	return site, nil
}

func (s *MemoryStore) FindOperatorByUsername(_ context.Context, username string) (Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.operators[username]
	if !ok {
		return Operator{}, sentinel.ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) CreateOperator(_ context.Context, o Operator) (Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.operators[o.Username]; exists {
		return Operator{}, sentinel.ErrConflict
	}
	o.ID = s.next()
	s.operators[o.Username] = o
	return o, nil
}
