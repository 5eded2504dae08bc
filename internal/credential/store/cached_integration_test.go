//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/credential/models"
	platformredis "gatepass/internal/platform/redis"
	"gatepass/pkg/sentinel"
	"gatepass/pkg/testutil/containers"
)

type CachedStoreSuite struct {
	suite.Suite
	ctx    context.Context
	rc     *containers.RedisContainer
	inner  *MemoryStore
	cached *CachedStore
}

func TestCachedStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	suite.Run(t, new(CachedStoreSuite))
}

func (s *CachedStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.rc = containers.NewRedisContainer(s.T())
}

func (s *CachedStoreSuite) SetupTest() {
	s.Require().NoError(s.rc.FlushAll(s.ctx))
	s.inner = NewMemory()
	s.cached = NewCached(s.inner, &platformredis.Client{Client: s.rc.Client})
}

func (s *CachedStoreSuite) seed(code string) models.Credential {
	c, err := s.cached.Insert(s.ctx, models.Credential{
		Code:      code,
		Kind:      models.KindEmployee,
		SubjectID: 1,
		IssuedAt:  time.Now().UTC(),
		Status:    models.StatusActive,
	})
	s.Require().NoError(err)
	return c
}

func (s *CachedStoreSuite) TestLookupIsServedFromCache() {
	c := s.seed("EMP_1_a1b2c3d4e5f6")

	first, err := s.cached.Lookup(s.ctx, c.Code)
	s.Require().NoError(err)
	s.Equal(c.ID, first.ID)

	// Bypass the cache layer for the write so the cached copy goes stale.
	s.Require().NoError(s.inner.Rewrite(s.ctx, c.ID, "EMP_1_000000000000"))

	second, err := s.cached.Lookup(s.ctx, c.Code)
	s.Require().NoError(err)
	s.Equal(c.ID, second.ID, "stale reads are bounded by the TTL, not forbidden")
}

func (s *CachedStoreSuite) TestRevokeInvalidatesTheCache() {
	c := s.seed("EMP_1_a1b2c3d4e5f6")

	_, err := s.cached.Lookup(s.ctx, c.Code)
	s.Require().NoError(err)

	s.Require().NoError(s.cached.MarkRevoked(s.ctx, c.ID))

	found, err := s.cached.Lookup(s.ctx, c.Code)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, found.Status, "revocation must be visible immediately")
}

// hookedStore lets a test interpose on the revoke write of the backing store.
type hookedStore struct {
	*MemoryStore
	beforeRevoke func()
}

func (h *hookedStore) MarkRevoked(ctx context.Context, id int64) error {
	if h.beforeRevoke != nil {
		h.beforeRevoke()
	}
	return h.MemoryStore.MarkRevoked(ctx, id)
}

func (s *CachedStoreSuite) TestConcurrentLookupCannotResurrectARevokedEntry() {
	hooked := &hookedStore{MemoryStore: s.inner}
	cached := NewCached(hooked, &platformredis.Client{Client: s.rc.Client})

	c, err := cached.Insert(s.ctx, models.Credential{
		Code:      "EMP_1_a1b2c3d4e5f6",
		Kind:      models.KindEmployee,
		SubjectID: 1,
		IssuedAt:  time.Now().UTC(),
		Status:    models.StatusActive,
	})
	s.Require().NoError(err)

	// A reader lands while the revoke is in flight and re-caches the still
	// active row. The entry it wrote must not survive the revoke.
	hooked.beforeRevoke = func() {
		mid, lerr := cached.Lookup(s.ctx, c.Code)
		s.Require().NoError(lerr)
		s.Require().Equal(models.StatusActive, mid.Status)
	}
	s.Require().NoError(cached.MarkRevoked(s.ctx, c.ID))

	found, err := cached.Lookup(s.ctx, c.Code)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, found.Status, "revocation must be visible immediately")
}

func (s *CachedStoreSuite) TestFailedWriteLeavesTheCacheAlone() {
	c := s.seed("EMP_1_a1b2c3d4e5f6")
	s.Require().NoError(s.cached.MarkRevoked(s.ctx, c.ID))

	err := s.cached.MarkRevoked(s.ctx, c.ID)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *CachedStoreSuite) TestCacheMissFallsThrough() {
	c := s.seed("EMP_1_a1b2c3d4e5f6")
	s.Require().NoError(s.rc.FlushAll(s.ctx))

	found, err := s.cached.Lookup(s.ctx, c.Code)
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)
}
