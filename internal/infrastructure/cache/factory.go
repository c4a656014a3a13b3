package cache

import (
	"go.uber.org/zap"

	"github.com/redis/go-redis/v9"
)

// NewGuard returns a Redis guard when client is set, else an in-memory one
func NewGuard(client *redis.Client, logger *zap.Logger) Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client != nil {
		logger.Info("using Redis checkout guard")
		return NewRedisGuardWithClient(client, "")
	}
	logger.Warn("Redis unavailable, using in-memory checkout guard. " +
		"Concurrent checkouts are only detected within this instance.")
	return NewInMemoryGuard()
}
