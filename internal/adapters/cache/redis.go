// Package cache provides permission-set cache backends. The cache is an
// optimization over the store; a cold or unavailable cache only costs a
// re-read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: redis.NewClient(opt), ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, userID, cabinetID string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, key(userID, cabinetID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, false, fmt.Errorf("decode cached permission set: %w", err)
	}
	return names, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID, cabinetID string, names []string) error {
	encoded, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode permission set: %w", err)
	}
	if err := c.client.Set(ctx, key(userID, cabinetID), encoded, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, userID, cabinetID string) error {
	if err := c.client.Del(ctx, key(userID, cabinetID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func key(userID, cabinetID string) string {
	return "perms:" + cabinetID + ":" + userID
}
