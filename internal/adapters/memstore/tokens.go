package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/target/lms-gateway/internal/ports"
)

type tokenEntry struct {
	userID    string
	expiresAt time.Time
}

// TokenStore keeps one-time tokens in memory. Expired entries are dropped on access.
type TokenStore struct {
	mu      sync.Mutex
	entries map[string]tokenEntry
	now     func() time.Time
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore returns an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{entries: make(map[string]tokenEntry), now: time.Now}
}

func tokenKey(purpose ports.TokenPurpose, token string) string {
	return string(purpose) + ":" + token
}

func (s *TokenStore) Put(_ context.Context, purpose ports.TokenPurpose, token, userID string, ttl time.Duration) error {
	if token == "" {
		return ports.ErrTokenRequired
	}
	if ttl <= 0 {
		return ports.ErrTokenTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[tokenKey(purpose, token)] = tokenEntry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *TokenStore) Consume(_ context.Context, purpose ports.TokenPurpose, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tokenKey(purpose, token)
	e, ok := s.entries[key]
	if !ok {
		return "", ports.ErrTokenNotFound
	}
	delete(s.entries, key)
	if !s.now().Before(e.expiresAt) {
		return "", ports.ErrTokenNotFound
	}
	return e.userID, nil
}
