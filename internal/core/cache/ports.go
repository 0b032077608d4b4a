package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist or has
// expired. Callers distinguish a miss (fetch fresh data) from an outage.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the port for short-lived shared state, currently OAuth tokens
// for carriers that issue them per client. Implementations must be safe
// for concurrent use.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the specified TTL. TTL of 0 means no
	// expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key, e.g. to invalidate a rejected token.
	Delete(ctx context.Context, key string) error

	// Ping checks if the cache service is reachable.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
