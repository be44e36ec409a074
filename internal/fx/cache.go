package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

// Cache stores the latest snapshot per base currency.
// Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, base string) (*models.RateSnapshot, error)
	Set(ctx context.Context, snapshot *models.RateSnapshot, ttl time.Duration) error
	Delete(ctx context.Context, base string) error
}

// MemoryCache is an in-process Cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	snapshot  *models.RateSnapshot
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, base string) (*models.RateSnapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[base]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, base)
		c.mu.Unlock()
		return nil, nil
	}
	return entry.snapshot, nil
}

func (c *MemoryCache) Set(_ context.Context, snapshot *models.RateSnapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[snapshot.Base] = memoryEntry{
		snapshot:  snapshot,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, base string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, base)
	return nil
}

// RedisCache stores snapshots as JSON under prefix+base.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing client. Keys are namespaced by prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// NewRedisCacheFromURL parses a redis:// URL and connects lazily.
func NewRedisCacheFromURL(url, prefix string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisCache(redis.NewClient(opt), prefix), nil
}

func (r *RedisCache) key(base string) string {
	return r.prefix + base
}

func (r *RedisCache) Get(ctx context.Context, base string) (*models.RateSnapshot, error) {
	val, err := r.client.Get(ctx, r.key(base)).Bytes()
	if errors.Is(err, redis.Nil) {
		slog.Debug("Redis cache miss", "base", base)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", base, err)
	}

	var snapshot models.RateSnapshot
	if err := json.Unmarshal(val, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	return &snapshot, nil
}

func (r *RedisCache) Set(ctx context.Context, snapshot *models.RateSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(snapshot.Base), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", snapshot.Base, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, base string) error {
	if err := r.client.Del(ctx, r.key(base)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", base, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
