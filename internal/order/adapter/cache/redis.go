// Package cache is the read-through cache for pull-mode status queries.
// Keys expire on a short TTL and are invalidated on every committed
// transition, so polling observers never lag the database for long.
package cache

import (
	"context"
	"time"

	"mon-resto/internal/xpkg/config"

	"github.com/redis/go-redis/v9"
)

type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(cfg config.Redis, ttl time.Duration) *StatusCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &StatusCache{client: client, ttl: ttl}
}

func (c *StatusCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *StatusCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

func (c *StatusCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *StatusCache) Close() error {
	return c.client.Close()
}
