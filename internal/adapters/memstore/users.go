// Package memstore holds in-process implementations of the user and token stores
// for local development and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/target/lms-gateway/internal/ports"
)

// UserStore keeps users in a map guarded by a RWMutex.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]ports.User
	byEmail map[string]string
	now     func() time.Time
}

var _ ports.UserStore = (*UserStore)(nil)

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]ports.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) Create(_ context.Context, u ports.User) (ports.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = normalizeEmail(u.Email)
	if u.Email == "" {
		return ports.User{}, ports.ErrEmailRequired
	}
	if _, taken := s.byEmail[u.Email]; taken {
		return ports.User{}, ports.ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *UserStore) Get(_ context.Context, id string) (ports.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return ports.User{}, ports.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (ports.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return ports.User{}, ports.ErrUserNotFound
	}
	return s.byID[id], nil
}

// Update replaces the stored record. The email is immutable.
func (s *UserStore) Update(_ context.Context, u ports.User) (ports.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[u.ID]
	if !ok {
		return ports.User{}, ports.ErrUserNotFound
	}
	u.Email = cur.Email
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.now().UTC()
	s.byID[u.ID] = u
	return u, nil
}

// List returns users ordered by creation time, then id.
func (s *UserStore) List(_ context.Context, offset, limit int) ([]ports.User, int, error) {
	s.mu.RLock()
	all := make([]ports.User, 0, len(s.byID))
	for _, u := range s.byID {
		all = append(all, u)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return page(all, offset, limit), len(all), nil
}

func page(all []ports.User, offset, limit int) []ports.User {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []ports.User{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
