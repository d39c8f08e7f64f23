package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache is a msgpack-encoded key/value helper with TTLs
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
}

// NewCache creates a cache helper on top of client
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) key(key string) string {
	return c.client.Key("cache", key)
}

// Get decodes the cached value into dest; found is false on a miss
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := msgpack.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value with ttl
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	if err := c.client.Redis().Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// Cache TTLs
const (
	TTLShort  = 1 * time.Minute
	TTLMedium = 15 * time.Minute // tier-1 기본값과 동일
	TTLLong   = 1 * time.Hour    // 벤치마크 시계열
	TTLDaily  = 24 * time.Hour
)

// BenchmarkKey is the cache key of a benchmark series
func BenchmarkKey(ticker string) string {
	return fmt.Sprintf("benchmark:%s", ticker)
}

// ScoreHashKey is the durable hash holding score rows per date
func ScoreHashKey(ticker string) string {
	return fmt.Sprintf("store:score:%s", ticker)
}

// PriceHashKey is the durable hash holding closes per date
func PriceHashKey(ticker string) string {
	return fmt.Sprintf("store:price:%s", ticker)
}
