package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*RedisRevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRevocationStore(rdb, ""), mr
}

func TestRevokeAndCheck(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "abc", time.Now().Add(time.Hour)))

	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists("revoked:abc"))
}

func TestRevocationExpiresWithToken(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "abc", time.Now().Add(time.Minute)))
	mr.FastForward(2 * time.Minute)

	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	store, mr := newStore(t)

	require.NoError(t, store.Revoke(context.Background(), "old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("revoked:old"))
}

func TestIsRevokedRedisDown(t *testing.T) {
	store, mr := newStore(t)
	mr.Close()

	_, err := store.IsRevoked(context.Background(), "abc")
	assert.Error(t, err)
}
