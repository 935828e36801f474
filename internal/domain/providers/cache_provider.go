package providers

import (
	"context"
	"time"
)

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)

	// Increment adds one to a counter, starting its expiry window on first use,
	// and returns the new value with the time left in the window
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)

	// Ping checks that the cache backend is reachable
	Ping(ctx context.Context) error
}
