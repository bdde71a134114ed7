// Package cache holds rendered pages for a bounded time.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache stores opaque payloads under string keys. Entries outlive data
// changes until they expire or are removed explicitly.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// MemoryCache is a process-wide Cache backed by go-cache.
type MemoryCache struct {
	store *gocache.Cache
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache whose expired entries are swept every
// cleanupInterval. Expired entries are never returned, swept or not.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := c.store.Get(key)
	if !found {
		return nil, false, nil
	}
	payload, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return clone(payload), true, nil
}

// Set stores a copy of payload. A ttl of zero or less keeps the entry
// until it is deleted or the cache is cleared.
func (c *MemoryCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(key, clone(payload), ttl)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.store.Flush()
	return nil
}

// Len reports the number of stored entries, expired ones included until
// the next sweep.
func (c *MemoryCache) Len() int {
	return c.store.ItemCount()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
