package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListStore is the Redis-like backing store behind notification
// persistence: head-push lists with trim and key expiry.
type ListStore interface {
	Push(ctx context.Context, key, value string) error
	Trim(ctx context.Context, key string, max int) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Range(ctx context.Context, key string, limit int) ([]string, error)
}

// RedisListStore backs the buffer with a Redis server.
type RedisListStore struct {
	rdb *redis.Client
}

func NewRedisListStore(addr, password string, db int) *RedisListStore {
	return &RedisListStore{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *RedisListStore) Push(ctx context.Context, key, value string) error {
	return s.rdb.LPush(ctx, key, value).Err()
}

func (s *RedisListStore) Trim(ctx context.Context, key string, max int) error {
	return s.rdb.LTrim(ctx, key, 0, int64(max-1)).Err()
}

func (s *RedisListStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.rdb.Expire(ctx, key, ttl).Err()
}

func (s *RedisListStore) Range(ctx context.Context, key string, limit int) ([]string, error) {
	return s.rdb.LRange(ctx, key, 0, int64(limit-1)).Result()
}

// Ping verifies the Redis server is reachable.
func (s *RedisListStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisListStore) Close() error {
	return s.rdb.Close()
}

// MemoryListStore keeps the buffer in process memory. Used when no Redis
// address is configured and in tests; buffered notifications do not
// survive a restart.
type MemoryListStore struct {
	mu       sync.Mutex
	lists    map[string][]string
	deadline map[string]time.Time
	now      func() time.Time
}

func NewMemoryListStore() *MemoryListStore {
	return &MemoryListStore{
		lists:    make(map[string][]string),
		deadline: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *MemoryListStore) Push(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	s.lists[key] = append([]string{value}, s.lists[key]...)
	return nil
}

func (s *MemoryListStore) Trim(ctx context.Context, key string, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if list := s.lists[key]; len(list) > max {
		s.lists[key] = list[:max]
	}
	return nil
}

func (s *MemoryListStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadline[key] = s.now().Add(ttl)
	return nil
}

func (s *MemoryListStore) Range(ctx context.Context, key string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	list := s.lists[key]
	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

func (s *MemoryListStore) purgeLocked(key string) {
	if dl, ok := s.deadline[key]; ok && s.now().After(dl) {
		delete(s.lists, key)
		delete(s.deadline, key)
	}
}
