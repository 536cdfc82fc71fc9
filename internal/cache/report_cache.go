package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Report cache keys. Only chart projections are cached; stock levels are always read live.
const (
	KeyOrdersByMonth  = "winery:report:orders_by_month"
	KeyCategoryTotals = "winery:report:category_totals"
)

// ReportCache stores JSON-encoded report projections for a short time.
// A reader that computed a projection before an Invalidate may still Set it afterwards,
// so a cached chart can lag the ledger by up to the TTL.
type ReportCache interface {
	// Get decodes the cached value into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context, keys ...string) error
}

type RedisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReportCache(client *redis.Client, ttl time.Duration) *RedisReportCache {
	return &RedisReportCache{client: client, ttl: ttl}
}

func (c *RedisReportCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisReportCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

func (c *RedisReportCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate report cache: %w", err)
	}
	return nil
}

// NoopReportCache never hits. It is used when Redis is not configured.
type NoopReportCache struct{}

func (NoopReportCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (NoopReportCache) Set(context.Context, string, interface{}) error         { return nil }
func (NoopReportCache) Invalidate(context.Context, ...string) error            { return nil }

var (
	_ ReportCache = (*RedisReportCache)(nil)
	_ ReportCache = NoopReportCache{}
)
