package store

import (
	"context"
	"encoding/json"
	"time"

	"gatepass/internal/credential/models"
	platformredis "gatepass/internal/platform/redis"
)

// CachedStore layers a Redis read cache over another credential store. The
// cache is never authoritative: every write path invalidates the cached entry
// after the backing store commits, so a concurrent lookup cannot re-cache the
// pre-write row. The CAS-guarded visit/attendance paths do not read the cache
// at all. Cache failures degrade to the backing store.
type CachedStore struct {
	inner Store
	redis *platformredis.Client
	ttl   time.Duration
}

func NewCached(inner Store, client *platformredis.Client) *CachedStore {
	return &CachedStore{inner: inner, redis: client, ttl: 30 * time.Second}
}

func cacheKey(code string) string {
	return "gatepass:credential:" + code
}

func (s *CachedStore) Lookup(ctx context.Context, code string) (models.Credential, error) {
	// Both a cache miss and a cache outage fall through to storage.
	if cached, err := s.redis.Get(ctx, cacheKey(code)).Bytes(); err == nil {
		var c models.Credential
		if json.Unmarshal(cached, &c) == nil {
			return c, nil
		}
	}

	c, err := s.inner.Lookup(ctx, code)
	if err != nil {
		return models.Credential{}, err
	}
	if payload, err := json.Marshal(c); err == nil {
		_ = s.redis.Set(ctx, cacheKey(code), payload, s.ttl).Err()
	}
	return c, nil
}

func (s *CachedStore) LookupByID(ctx context.Context, id int64) (models.Credential, error) {
	return s.inner.LookupByID(ctx, id)
}

func (s *CachedStore) LookupTrimmed(ctx context.Context, code string) (models.Credential, error) {
	return s.inner.LookupTrimmed(ctx, code)
}

func (s *CachedStore) Rewrite(ctx context.Context, id int64, code string) error {
	// The old code must be captured before the write moves the row to the
	// new one.
	old, lookupErr := s.inner.LookupByID(ctx, id)
	if err := s.inner.Rewrite(ctx, id, code); err != nil {
		return err
	}
	if lookupErr == nil {
		_ = s.redis.Del(ctx, cacheKey(old.Code)).Err()
	}
	_ = s.redis.Del(ctx, cacheKey(code)).Err()
	return nil
}

func (s *CachedStore) Insert(ctx context.Context, c models.Credential) (models.Credential, error) {
	inserted, err := s.inner.Insert(ctx, c)
	if err != nil {
		return models.Credential{}, err
	}
	_ = s.redis.Del(ctx, cacheKey(inserted.Code)).Err()
	return inserted, nil
}

func (s *CachedStore) ActiveForVisit(ctx context.Context, visitID int64) (models.Credential, error) {
	return s.inner.ActiveForVisit(ctx, visitID)
}

func (s *CachedStore) MarkExpired(ctx context.Context, id int64) error {
	if err := s.inner.MarkExpired(ctx, id); err != nil {
		return err
	}
	s.invalidateByID(ctx, id)
	return nil
}

func (s *CachedStore) MarkRevoked(ctx context.Context, id int64) error {
	if err := s.inner.MarkRevoked(ctx, id); err != nil {
		return err
	}
	s.invalidateByID(ctx, id)
	return nil
}

// invalidateByID drops the cached entry for a credential addressed by ID.
// Cache keys are code values, so this resolves the code first. The caller
// runs it only after the backing write committed. If resolution fails the
// stale entry is bounded by the TTL.
func (s *CachedStore) invalidateByID(ctx context.Context, id int64) {
	if c, err := s.inner.LookupByID(ctx, id); err == nil {
		_ = s.redis.Del(ctx, cacheKey(c.Code)).Err()
	}
}
