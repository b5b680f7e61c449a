package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-carrier-billing/core"
)

// Redis backs the CacheClient with a shared redis instance so enabled-flag
// reads stay consistent across billing nodes.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("cache: redis client is required")
	}
	return &Redis{client: client}, nil
}

func NewRedisFromAddr(addr string) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("cache: redis address is required")
	}
	return NewRedis(redis.NewClient(&redis.Options{Addr: addr}))
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache: redis get %q: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: redis delete %q: %w", key, err)
	}
	return nil
}

var _ core.CacheClient = (*Redis)(nil)
