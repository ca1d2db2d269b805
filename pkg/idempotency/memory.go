package idempotency

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps claims in process. Claims are lost on restart and are not shared
// between replicas.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{c: cache.New(defaultTTL, cleanupInterval)}
}

func (s *MemoryStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// Add fails when an unexpired item exists, which makes the claim atomic.
	if err := s.c.Add(key, time.Now(), ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.c.Delete(key)
	return nil
}
