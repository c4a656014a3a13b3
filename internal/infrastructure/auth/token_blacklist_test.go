package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallypro/storefront/internal/infrastructure/auth"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
)

func TestKVTokenBlacklist_Tokens(t *testing.T) {
	store := kv.NewMemoryStore()
	defer store.Close()
	bl := auth.NewKVTokenBlacklist(store)
	ctx := context.Background()

	revoked, err := bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.AddToBlacklist(ctx, "jti-1", time.Hour))

	revoked, err = bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestKVTokenBlacklist_ExpiredTokensAreIgnored(t *testing.T) {
	store := kv.NewMemoryStore()
	defer store.Close()
	bl := auth.NewKVTokenBlacklist(store)
	ctx := context.Background()

	require.NoError(t, bl.AddToBlacklist(ctx, "jti-1", 0))
	revoked, err := bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestKVTokenBlacklist_InvalidateUser(t *testing.T) {
	store := kv.NewMemoryStore()
	defer store.Close()
	bl := auth.NewKVTokenBlacklist(store)
	ctx := context.Background()

	issuedBefore := time.Now().Add(-time.Minute)

	invalid, err := bl.IsUserTokenInvalidated(ctx, "u1", issuedBefore)
	require.NoError(t, err)
	assert.False(t, invalid)

	require.NoError(t, bl.InvalidateUser(ctx, "u1", time.Hour))

	invalid, err = bl.IsUserTokenInvalidated(ctx, "u1", issuedBefore)
	require.NoError(t, err)
	assert.True(t, invalid)

	invalid, err = bl.IsUserTokenInvalidated(ctx, "u1", time.Now().Add(2*time.Second))
	require.NoError(t, err)
	assert.False(t, invalid)

	invalid, err = bl.IsUserTokenInvalidated(ctx, "u2", issuedBefore)
	require.NoError(t, err)
	assert.False(t, invalid)
}
