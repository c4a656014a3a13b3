// Package cache holds short-lived coordination state for checkouts.
package cache

import (
	"context"
	"time"
)

// Guard grants at most one holder per key until release or expiry
type Guard interface {
	// Acquire returns true when the key was free and is now held for ttl
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees the key. Releasing a free key is not an error.
	Release(ctx context.Context, key string) error
	Close() error
}
