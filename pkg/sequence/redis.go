package sequence

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix prefixes every counter key stored in Redis.
const DefaultRedisPrefix = "snamp:seq:"

// incrementer is satisfied by *redis.Client and *redis.ClusterClient.
type incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisCounter keeps counters in Redis using INCR.
type RedisCounter struct {
	client incrementer
	prefix string
}

// NewRedisCounter creates a counter on client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisCounter(client incrementer, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCounter{client: client, prefix: prefix}
}

// Next increments the counter for key.
func (r *RedisCounter) Next(ctx context.Context, key string) (uint64, error) {
	n, err := r.client.Incr(ctx, r.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrCorruptCounter, n)
	}
	return uint64(n), nil
}
