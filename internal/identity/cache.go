package identity

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "identity:map:"
	cacheTTL       = 24 * time.Hour
)

// Cache is a best-effort layer in front of the mapping table.
type Cache interface {
	Get(ctx context.Context, externalCustomerID string) (string, bool, error)
	Set(ctx context.Context, externalCustomerID, accountID string) error
}

type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{redis: rdb, ttl: cacheTTL}
}

func (c *RedisCache) Get(ctx context.Context, externalCustomerID string) (string, bool, error) {
	accountID, err := c.redis.Get(ctx, cacheKeyPrefix+externalCustomerID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return accountID, true, nil
}

func (c *RedisCache) Set(ctx context.Context, externalCustomerID, accountID string) error {
	return c.redis.Set(ctx, cacheKeyPrefix+externalCustomerID, accountID, c.ttl).Err()
}
