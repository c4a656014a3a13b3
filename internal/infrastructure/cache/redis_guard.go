package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultGuardPrefix = "checkout:inflight:"

// RedisGuard implements Guard with SETNX, shared by every instance
type RedisGuard struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisGuardWithClient creates a guard on an existing client. The
// client is owned by the caller.
func NewRedisGuardWithClient(client *redis.Client, keyPrefix string) *RedisGuard {
	if keyPrefix == "" {
		keyPrefix = defaultGuardPrefix
	}
	return &RedisGuard{client: client, keyPrefix: keyPrefix}
}

// Acquire sets the key only if absent, with ttl, in one atomic call
func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire checkout guard: %w", err)
	}
	return ok, nil
}

// Release deletes the key
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release checkout guard: %w", err)
	}
	return nil
}

// Close is a no-op; the shared client is closed by its owner
func (g *RedisGuard) Close() error {
	return nil
}

var _ Guard = (*RedisGuard)(nil)
