// Package auth holds the pieces of identity handling this service owns:
// it never issues tokens, but it can refuse tokens that were revoked
// before they expired.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore answers whether a token id has been revoked.
type RevocationStore interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationStore keeps revoked token ids in Redis. Each entry
// expires together with the token it blocks, so the set never grows
// beyond the tokens that are still otherwise valid.
type RedisRevocationStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisRevocationStore returns a store writing keys under prefix.
func NewRedisRevocationStore(rdb *redis.Client, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevocationStore{rdb: rdb, prefix: prefix}
}

func (s *RedisRevocationStore) key(jti string) string {
	return s.prefix + ":" + jti
}

// Revoke blocks jti until expiresAt. Tokens that already expired are
// ignored.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, s.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti is in the revocation set.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}
