package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis persists values in Redis under a key prefix.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithTTL makes every Set expire after ttl. Zero keeps values until deleted.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis creates a Redis-backed Store. An empty prefix defaults to "gs".
func NewRedis(client redis.UniversalClient, prefix string, opts ...RedisOption) *Redis {
	if prefix == "" {
		prefix = "gs"
	}
	r := &Redis{
		redis:  client,
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + key
}

// Get implements Store.
//
//	Performance: 1 Redis GET.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.redis.Get(ctx, r.key(key)).Result()
	if err != nil {
		return "", r.mapErr(err)
	}
	return v, nil
}

// Set implements Store.
//
//	Performance: 1 Redis SET.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.redis.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return r.mapErr(err)
	}
	return nil
}

// Delete implements Store.
//
//	Performance: 1 Redis DEL.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.key(key)
	}
	if err := r.redis.Del(ctx, full...).Err(); err != nil {
		return r.mapErr(err)
	}
	return nil
}

// Take implements Store.
//
//	Performance: 1 Redis GETDEL.
func (r *Redis) Take(ctx context.Context, key string) (string, error) {
	v, err := r.redis.GetDel(ctx, r.key(key)).Result()
	if err != nil {
		return "", r.mapErr(err)
	}
	return v, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (r *Redis) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

func (r *Redis) mapErr(err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
