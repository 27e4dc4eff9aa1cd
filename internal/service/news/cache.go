package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]Item, bool, error)
	Set(ctx context.Context, key string, items []Item, ttl time.Duration) error
}

type memoryEntry struct {
	items     []Item
	expiresAt time.Time
}

// MemoryCache 进程内 TTL 缓存
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]Item, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]Item(nil), entry.items...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, items []Item, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		items:     append([]Item(nil), items...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client, prefix: "decision-agent:news:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]Item, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("decode cached news: %w", err)
	}
	return items, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, items []Item, ttl time.Duration) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

// CachedSource 缓存读写失败时直接回源，不影响搜索结果
type CachedSource struct {
	source Source
	cache  Cache
	ttl    time.Duration
}

func NewCachedSource(source Source, cache Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, cache: cache, ttl: ttl}
}

func (s *CachedSource) Name() string {
	return s.source.Name()
}

func (s *CachedSource) Search(ctx context.Context, keyword string, window time.Duration) ([]Item, error) {
	key := fmt.Sprintf("%s:%s:%s", s.source.Name(), keyword, window)
	items, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("news cache get failed", "key", key, "error", err)
	}
	if ok {
		return items, nil
	}
	items, err = s.source.Search(ctx, keyword, window)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, items, s.ttl); err != nil {
		slog.Warn("news cache set failed", "key", key, "error", err)
	}
	return items, nil
}
