package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is a store of expiring integer counters keyed by string.
type Counter interface {
	// Increment bumps key and returns the new value. A key created by this
	// call expires after ttl.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Close() error
}

// RedisCounter keeps counters in Redis so limits hold across instances.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter connects to Redis and verifies the connection.
func NewRedisCounter(addr, password string, db int, prefix string) (*RedisCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCounter{client: client, prefix: prefix}, nil
}

// Increment implements Counter.
func (r *RedisCounter) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	key = r.prefix + key

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Ping reports whether Redis answers.
func (r *RedisCounter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisCounter) Close() error {
	return r.client.Close()
}

// MemoryCounter is a process-local Counter.
type MemoryCounter struct {
	mu    sync.Mutex
	store map[string]counterItem
	now   func() time.Time
}

type counterItem struct {
	value     int64
	expiresAt time.Time
}

// NewMemoryCounter creates an empty in-memory counter store.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		store: make(map[string]counterItem),
		now:   time.Now,
	}
}

// Increment implements Counter.
func (m *MemoryCounter) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	item, ok := m.store[key]
	if !ok || !now.Before(item.expiresAt) {
		item = counterItem{expiresAt: now.Add(ttl)}
	}
	item.value++
	m.store[key] = item
	return item.value, nil
}

// Sweep drops expired counters.
func (m *MemoryCounter) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, item := range m.store {
		if !now.Before(item.expiresAt) {
			delete(m.store, key)
		}
	}
}

// Len returns the number of stored keys, including expired ones not yet swept.
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// Close clears the store.
func (m *MemoryCounter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]counterItem)
	return nil
}
