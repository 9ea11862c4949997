// Package tiered layers a shared remote cache behind an in-process one.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/promptbox/internal/port/cache"
)

// Cache reads the local level first and falls back to the shared level,
// copying shared hits into the local one. The shared level is best effort:
// its failures are logged and the local result stands.
type Cache struct {
	local    cache.Cache
	shared   cache.Cache
	localTTL time.Duration
}

var _ cache.Cache = (*Cache)(nil)

// New creates a tiered cache. localTTL bounds how long values copied from
// shared stay in local.
func New(local, shared cache.Cache, localTTL time.Duration) *Cache {
	return &Cache{local: local, shared: shared, localTTL: localTTL}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok, err := c.local.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return val, true, nil
	}

	val, ok, err = c.shared.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "shared cache get failed", "error", err)
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	if err := c.local.Set(ctx, key, val, c.localTTL); err != nil {
		slog.DebugContext(ctx, "local cache backfill failed", "error", err)
	}
	return val, true, nil
}

// Set writes local, then shared.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if err := c.shared.Set(ctx, key, value, ttl); err != nil {
		slog.WarnContext(ctx, "shared cache set failed", "error", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	if err := c.shared.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "shared cache delete failed", "error", err)
	}
	return nil
}
