package completion

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

const cacheKeyPrefix = "insomnia:completion:"

// redisClient is the subset of the Redis client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// CachedCompletion is a completion stored in Redis with its metadata.
type CachedCompletion struct {
	Model      string    `json:"model"`
	Completion string    `json:"completion"`
	CachedAt   time.Time `json:"cached_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// CacheStats reports cache tier hits and misses.
type CacheStats struct {
	MemoryHits  int64 `json:"memory_hits"`
	RedisHits   int64 `json:"redis_hits"`
	Misses      int64 `json:"misses"`
	MemoryItems int   `json:"memory_items"`
}

// CachedService caches completions in an in-memory LRU and, when configured,
// in Redis. Completions are cached per model and prompt; failures are never
// cached.
type CachedService struct {
	next       domain.CompletionService
	model      string
	memory     *lru.Cache[string, string]
	redis      redisClient
	ttl        time.Duration
	logger     *logrus.Logger
	memoryHits atomic.Int64
	redisHits  atomic.Int64
	misses     atomic.Int64
}

// NewCachedService creates a cache in front of next. An empty RedisURL keeps
// the cache in memory only.
func NewCachedService(next domain.CompletionService, model string, config domain.CacheConfig, logger *logrus.Logger) (*CachedService, error) {
	size := config.MemorySize
	if size <= 0 {
		size = 1000
	}
	memory, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	var client redisClient
	if config.RedisURL != "" {
		client, err = newRedisClient(config)
		if err != nil {
			return nil, err
		}
	}

	return newCachedService(next, model, memory, client, config.DefaultTTL, logger), nil
}

func newCachedService(next domain.CompletionService, model string, memory *lru.Cache[string, string], client redisClient, ttl time.Duration, logger *logrus.Logger) *CachedService {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &CachedService{
		next:   next,
		model:  model,
		memory: memory,
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

func newRedisClient(config domain.CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Complete returns a cached completion or calls the wrapped service.
func (c *CachedService) Complete(ctx context.Context, prompt string) (string, error) {
	key := c.key(prompt)

	if completion, ok := c.memory.Get(key); ok {
		c.memoryHits.Add(1)
		return completion, nil
	}

	if c.redis != nil {
		completion, found, err := c.getRedis(ctx, key)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to read completion cache")
		}
		if found {
			c.redisHits.Add(1)
			c.memory.Add(key, completion)
			return completion, nil
		}
	}

	c.misses.Add(1)
	completion, err := c.next.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	c.memory.Add(key, completion)
	if c.redis != nil {
		if err := c.setRedis(ctx, key, completion); err != nil {
			// Log cache error but don't fail the request
			c.logger.WithError(err).Warn("Failed to cache completion")
		}
	}
	return completion, nil
}

func (c *CachedService) getRedis(ctx context.Context, key string) (string, bool, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get completion cache: %w", err)
	}

	var cached CachedCompletion
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return "", false, nil
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return "", false, nil
	}
	return cached.Completion, true, nil
}

func (c *CachedService) setRedis(ctx context.Context, key, completion string) error {
	now := time.Now()
	data, err := json.Marshal(CachedCompletion{
		Model:      c.model,
		Completion: completion,
		CachedAt:   now,
		ExpiresAt:  now.Add(c.ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal completion cache data: %w", err)
	}
	return c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *CachedService) key(prompt string) string {
	hash := sha256.Sum256([]byte(c.model + "\x00" + prompt))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash)
}

// Stats returns cache statistics.
func (c *CachedService) Stats() CacheStats {
	return CacheStats{
		MemoryHits:  c.memoryHits.Load(),
		RedisHits:   c.redisHits.Load(),
		Misses:      c.misses.Load(),
		MemoryItems: c.memory.Len(),
	}
}

// Close releases the Redis connection, if any.
func (c *CachedService) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}
