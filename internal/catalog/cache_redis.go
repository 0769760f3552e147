package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisCachePrefix = "discovery:tmdb:"

// RedisCache shares upstream payloads between service replicas.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// redisNoExpiry is what PTTL reports for a key stored without a TTL.
const redisNoExpiry = time.Duration(-1)

// Get returns the payload together with its remaining lifetime.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	pipe := r.client.Pipeline()
	get := pipe.Get(ctx, redisCachePrefix+key)
	pttl := pipe.PTTL(ctx, redisCachePrefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}
	data, err := get.Bytes()
	if err != nil {
		return nil, 0, false, err
	}
	return data, pttl.Val(), true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return r.client.Set(ctx, redisCachePrefix+key, data, ttl).Err()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
