// Package cache keeps read-mostly list responses in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockflow/internal/metrics"
	"stockflow/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	KeyProducts   = "stockflow:products:list"
	KeyCategories = "stockflow:categories:list"
	KeySuppliers  = "stockflow:suppliers:list"
)

type Cache interface {
	// Get reports a miss with ok=false and a nil error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Redis struct {
	client *redis.Client
}

// NewRedis connects to the server at url (redis://...) and pings it.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Delete(context.Context, ...string) error                  { return nil }

// Remember returns the cached value for key or loads, stores and returns it.
// Cache failures are logged and fall through to load.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if raw, ok, err := c.Get(ctx, key); err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", key).Msg("cache read failed")
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			metrics.RecordCacheLookup(true)
			return cached, nil
		}
		logger.Warn(ctx).Str("cache_key", key).Msg("discarding undecodable cache entry")
	}
	metrics.RecordCacheLookup(false)

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", key).Msg("failed to encode cache entry")
		return value, nil
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", key).Msg("failed to cache response")
	}
	return value, nil
}

// Invalidate drops keys, logging failures; stale entries expire with their TTL.
func Invalidate(ctx context.Context, c Cache, keys ...string) {
	if err := c.Delete(ctx, keys...); err != nil {
		logger.Warn(ctx).Err(err).Strs("cache_keys", keys).Msg("cache invalidation failed")
	}
}
