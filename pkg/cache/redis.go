package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis. Every key is prefixed so that
// [RedisCache.Clear] only removes entries written through this cache.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	backoff Backoff
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithRedisPrefix sets the key prefix. The default is "rankbars:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

// WithRedisBackoff sets the retry policy of the initial PING. The default
// is [DefaultBackoff].
func WithRedisBackoff(b Backoff) RedisOption {
	return func(c *RedisCache) { c.backoff = b }
}

// NewRedisCache connects to the Redis server at addr. The connection is
// verified with PING, retried with backoff on failure.
func NewRedisCache(ctx context.Context, addr string, opts ...RedisOption) (*RedisCache, error) {
	c := &RedisCache{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		prefix:  "rankbars:",
		backoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}

	err := c.backoff.Retry(ctx, func() error {
		if err := c.client.Ping(ctx).Err(); err != nil {
			return Retryable(fmt.Errorf("%w: ping %s: %v", ErrNetwork, addr, err))
		}
		return nil
	})
	if err != nil {
		_ = c.client.Close()
		return nil, err
	}
	return c, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value in Redis. A zero ttl keeps the entry until deleted.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Clear removes every key carrying the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var (
	_ Cache   = (*RedisCache)(nil)
	_ Clearer = (*RedisCache)(nil)
)
