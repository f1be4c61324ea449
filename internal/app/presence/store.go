/*
Package presence mirrors the backend's online/offline broadcasts into a set of online users.

The realtime core only relays presence events; aggregating them is left to callers. This
package is such a caller: it keeps the set in memory or in a Redis set shared with other
local processes.
*/
package presence

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store holds the set of online user IDs.
type Store interface {
	Add(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
	Members(ctx context.Context) ([]int64, error)
	Clear(ctx context.Context) error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[int64]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]struct{})}
}

func (s *MemoryStore) Add(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

// Members returns the online users in ascending order.
func (s *MemoryStore) Members(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.users)
	return nil
}

// RedisStore keeps the online set in a single Redis set.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a RedisStore using key for the set.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "hzrealtime:presence:online"
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Add(ctx context.Context, userID int64) error {
	return s.client.SAdd(ctx, s.key, userID).Err()
}

func (s *RedisStore) Remove(ctx context.Context, userID int64) error {
	return s.client.SRem(ctx, s.key, userID).Err()
}

// Members returns the online users in ascending order.
func (s *RedisStore) Members(ctx context.Context) ([]int64, error) {
	raw, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	return parseMembers(raw)
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func parseMembers(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, m := range raw {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid presence member %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
