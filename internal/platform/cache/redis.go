// Package cache provides the Redis client and a narrow key-value adapter
// used by the permission cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// KV exposes Redis through the generic key-value surface the permission
// cache depends on. Values are opaque byte payloads with per-key TTLs.
type KV struct {
	client *redis.Client
}

// NewKV wraps a Redis client.
func NewKV(client *redis.Client) *KV {
	return &KV{client: client}
}

// Get fetches a key. The second return value is false on a miss.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := kv.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("platform/cache: get %s: %w", key, err)
	}
	return payload, true, nil
}

// Set stores a value under key with the supplied TTL.
func (kv *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := kv.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("platform/cache: set %s: %w", key, err)
	}
	return nil
}

// Del removes the given keys. Missing keys are not an error.
func (kv *KV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := kv.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("platform/cache: del: %w", err)
	}
	return nil
}
