package redis

// Package redis provides Redis-backed user and one-time token stores for the dev backend.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/target/lms-gateway/internal/ports"
)

const defaultPrefix = "lms:"

// UserStore persists users as JSON documents.
//
// Layout (relative to the prefix):
//
//	user:<id>            JSON document
//	user:email:<email>   id, claimed with SETNX to enforce uniqueness
//	users                sorted set of ids scored by creation time
type UserStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ ports.UserStore = (*UserStore)(nil)

// NewUserStore creates a Redis-backed user store using the default key prefix.
func NewUserStore(client redis.UniversalClient) *UserStore {
	return NewUserStoreWithPrefix(client, defaultPrefix)
}

// NewUserStoreWithPrefix creates a Redis-backed user store with a custom key prefix.
func NewUserStoreWithPrefix(client redis.UniversalClient, prefix string) *UserStore {
	return &UserStore{client: client, prefix: prefix, now: time.Now}
}

func (s *UserStore) userKey(id string) string { return s.prefix + "user:" + id }
func (s *UserStore) emailKey(email string) string { return s.prefix + "user:email:" + email }
func (s *UserStore) indexKey() string { return s.prefix + "users" }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) Create(ctx context.Context, u ports.User) (ports.User, error) {
	u.Email = normalizeEmail(u.Email)
	if u.Email == "" {
		return ports.User{}, ports.ErrEmailRequired
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	claimed, err := s.client.SetNX(ctx, s.emailKey(u.Email), u.ID, 0).Result()
	if err != nil {
		return ports.User{}, fmt.Errorf("redis setnx: %w", err)
	}
	if !claimed {
		return ports.User{}, ports.ErrEmailTaken
	}

	data, err := json.Marshal(u)
	if err != nil {
		return ports.User{}, fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.userKey(u.ID), data, 0)
		p.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(now.UnixNano()), Member: u.ID})
		return nil
	})
	if err != nil {
		if delErr := s.client.Del(ctx, s.emailKey(u.Email)).Err(); delErr != nil {
			return ports.User{}, errors.Join(fmt.Errorf("redis create user: %w", err), fmt.Errorf("release email claim: %w", delErr))
		}
		return ports.User{}, fmt.Errorf("redis create user: %w", err)
	}
	return u, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (ports.User, error) {
	if id == "" {
		return ports.User{}, ports.ErrUserNotFound
	}
	data, err := s.client.Get(ctx, s.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.User{}, ports.ErrUserNotFound
		}
		return ports.User{}, fmt.Errorf("redis get: %w", err)
	}

	var u ports.User
	if err := json.Unmarshal(data, &u); err != nil {
		return ports.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (ports.User, error) {
	id, err := s.client.Get(ctx, s.emailKey(normalizeEmail(email))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.User{}, ports.ErrUserNotFound
		}
		return ports.User{}, fmt.Errorf("redis get: %w", err)
	}
	return s.Get(ctx, id)
}

// Update replaces the stored document. The email and creation time are kept.
func (s *UserStore) Update(ctx context.Context, u ports.User) (ports.User, error) {
	cur, err := s.Get(ctx, u.ID)
	if err != nil {
		return ports.User{}, err
	}
	u.Email = cur.Email
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.now().UTC()

	data, err := json.Marshal(u)
	if err != nil {
		return ports.User{}, fmt.Errorf("marshal user: %w", err)
	}
	if err := s.client.Set(ctx, s.userKey(u.ID), data, 0).Err(); err != nil {
		return ports.User{}, fmt.Errorf("redis set: %w", err)
	}
	return u, nil
}

// List returns users ordered by creation time. A non-positive limit returns all users from offset.
func (s *UserStore) List(ctx context.Context, offset, limit int) ([]ports.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	total, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis zcard: %w", err)
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), int64(offset), stop).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis zrange: %w", err)
	}

	users := make([]ports.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ports.ErrUserNotFound) {
				continue
			}
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, int(total), nil
}
