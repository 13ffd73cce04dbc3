package cache

import (
	"context"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/port/output"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is a process-local Cache backed by go-cache. Expired entries
// are invisible to Get and swept in the background.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates an in-memory cache that sweeps expired entries every cleanupInterval
func NewMemoryCache(cleanupInterval time.Duration) output.Cache {
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get returns the live value for key
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := c.store.Get(key)
	if !found {
		return nil, false, nil
	}
	value, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores value under key for ttl. A non-positive ttl keeps the entry until overwritten.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.store.Set(key, stored, ttl)
	return nil
}
