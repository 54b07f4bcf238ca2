package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces keys written by the Redis store.
const DefaultRedisPrefix = "kyc-jibit:"

// Redis is a Store backed by a Redis server. It is the backend of choice
// when several hosts share one credential. Expiry is delegated to Redis.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedis wraps an existing client. An empty prefix selects DefaultRedisPrefix.
// The store does not take ownership of rdb unless Close is called.
func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("cache: redis get %q: %w", key, err)
	}

	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, r.key(key), value, redisTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("cache: redis set %q: %w", key, err)
	}

	return nil
}

// SetMany writes all entries inside one MULTI/EXEC block.
func (r *Redis) SetMany(ctx context.Context, entries []Entry) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, r.key(e.Key), e.Value, redisTTL(e.TTL))
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: redis pipeline: %w", err)
	}

	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("cache: redis del %q: %w", key, err)
	}

	return nil
}

// EvictExpired is a no-op: Redis expires keys itself.
func (r *Redis) EvictExpired(context.Context) error {
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

// redisTTL maps a non-positive TTL to 0, which go-redis sends as "no expiry".
func redisTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}

	return ttl
}
