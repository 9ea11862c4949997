// Package cache defines the port interface for short-lived key-value caching,
// used to replay responses for repeated Idempotency-Key requests.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching.
// A miss is reported as (nil, false, nil), never as an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
