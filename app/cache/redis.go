package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps size-probe verdicts in Redis so they survive restarts
// and are shared between instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Lookup(ctx context.Context, url string) (bool, bool) {
	val, err := c.client.Get(ctx, ProbeKey(url)).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		slog.Warn("Probe cache lookup failed", "url", url, "error", err)
		return false, false
	}
	return val == "1", true
}

func (c *RedisCache) Store(ctx context.Context, url string, verdict bool) {
	val := "0"
	if verdict {
		val = "1"
	}
	if err := c.client.Set(ctx, ProbeKey(url), val, c.ttl).Err(); err != nil {
		slog.Warn("Probe cache store failed", "url", url, "error", err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// ProbeKey generates a consistent cache key for an image URL.
func ProbeKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("probe:%x", hash[:8])
}
