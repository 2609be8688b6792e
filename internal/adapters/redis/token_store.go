package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/lms-gateway/internal/ports"
)

// TokenStore keeps one-time tokens with Redis TTLs. Consume uses GETDEL so a
// token can be redeemed at most once.
type TokenStore struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates a Redis-backed token store using the default key prefix.
func NewTokenStore(client redis.UniversalClient) *TokenStore {
	return NewTokenStoreWithPrefix(client, defaultPrefix)
}

// NewTokenStoreWithPrefix creates a Redis-backed token store with a custom key prefix.
func NewTokenStoreWithPrefix(client redis.UniversalClient, prefix string) *TokenStore {
	return &TokenStore{client: client, prefix: prefix}
}

func (s *TokenStore) key(purpose ports.TokenPurpose, token string) string {
	return s.prefix + "token:" + string(purpose) + ":" + token
}

func (s *TokenStore) Put(ctx context.Context, purpose ports.TokenPurpose, token, userID string, ttl time.Duration) error {
	if token == "" {
		return ports.ErrTokenRequired
	}
	if ttl <= 0 {
		return ports.ErrTokenTTL
	}
	if err := s.client.Set(ctx, s.key(purpose, token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *TokenStore) Consume(ctx context.Context, purpose ports.TokenPurpose, token string) (string, error) {
	if token == "" {
		return "", ports.ErrTokenNotFound
	}
	userID, err := s.client.GetDel(ctx, s.key(purpose, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ports.ErrTokenNotFound
		}
		return "", fmt.Errorf("redis getdel: %w", err)
	}
	return userID, nil
}
