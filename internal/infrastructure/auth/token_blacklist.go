package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tallypro/storefront/internal/infrastructure/kv"
)

// TokenBlacklist invalidates tokens before they expire (logout, deactivation)
type TokenBlacklist interface {
	// AddToBlacklist revokes one token by its JTI for ttl
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	// InvalidateUser rejects every token of userID issued before now
	InvalidateUser(ctx context.Context, userID string, ttl time.Duration) error
	IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

const (
	tokenKeyPrefix = "token:blacklist:"
	userKeyPrefix  = "token:user_invalidated:"
)

// KVTokenBlacklist stores revocations in a kv.Store, so it is shared
// across instances when the store is Redis
type KVTokenBlacklist struct {
	store kv.Store
	now   func() time.Time
}

// NewKVTokenBlacklist creates a blacklist backed by store
func NewKVTokenBlacklist(store kv.Store) *KVTokenBlacklist {
	return &KVTokenBlacklist{store: store, now: time.Now}
}

// AddToBlacklist revokes a token
func (b *KVTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := b.store.Set(ctx, tokenKeyPrefix+jti, []byte("1"), ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted checks a token's JTI
func (b *KVTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	_, err := b.store.Get(ctx, tokenKeyPrefix+jti)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return true, nil
}

// InvalidateUser records the invalidation time for userID
func (b *KVTokenBlacklist) InvalidateUser(ctx context.Context, userID string, ttl time.Duration) error {
	stamp := strconv.FormatInt(b.now().UnixNano(), 10)
	if err := b.store.Set(ctx, userKeyPrefix+userID, []byte(stamp), ttl); err != nil {
		return fmt.Errorf("failed to invalidate user tokens: %w", err)
	}
	return nil
}

// IsUserTokenInvalidated reports whether a token issued at issuedAt predates an invalidation
func (b *KVTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := b.store.Get(ctx, userKeyPrefix+userID)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user invalidation: %w", err)
	}
	nanos, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false, fmt.Errorf("corrupt invalidation stamp for %s: %w", userID, err)
	}
	// JWT iat has second precision.
	return !issuedAt.After(time.Unix(0, nanos).Truncate(time.Second)), nil
}

var _ TokenBlacklist = (*KVTokenBlacklist)(nil)
