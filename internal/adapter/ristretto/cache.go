// Package ristretto is the in-process cache behind Idempotency-Key replays.
package ristretto

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Strob0t/promptbox/internal/port/cache"
)

// Cache is a size-bounded ristretto cache. Cost is the value length, so the
// bound is in bytes.
type Cache struct {
	store *ristretto.Cache[string, []byte]
}

var _ cache.Cache = (*Cache)(nil)

// New creates a cache holding at most maxBytes of values.
func New(maxBytes int64) (*Cache, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("ristretto: max bytes must be positive, got %d", maxBytes)
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// Counters track admission frequency; ten per expected entry,
		// assuming entries of roughly 100 bytes.
		NumCounters: max(maxBytes/10, 1000),
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &Cache{store: store}, nil
}

// Get returns a copy of the value under key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(val), true, nil
}

// Set stores value under key for ttl and waits until the write is visible,
// so a replay issued right after a response always finds it.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.store.SetWithTTL(key, bytes.Clone(value), int64(len(value)), ttl) {
		return fmt.Errorf("ristretto: set %s dropped", key)
	}
	c.store.Wait()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.store.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.store.Close()
}
