package cache

import (
	"context"
	"time"

	"github.com/matzehuels/rankbars/pkg/observability"
)

// Observed wraps c so that hits, misses and writes are reported to the
// registered [observability.CacheHooks]. The key type passed to the hooks
// comes from [KeyType].
func Observed(c Cache) Cache {
	return &observedCache{Cache: c}
}

type observedCache struct {
	Cache
}

func (c *observedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		observability.Cache().OnCacheHit(ctx, KeyType(key))
	} else {
		observability.Cache().OnCacheMiss(ctx, KeyType(key))
	}
	return data, ok, nil
}

func (c *observedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, KeyType(key), len(data))
	return nil
}

// Clear forwards to the wrapped cache when it supports clearing.
func (c *observedCache) Clear(ctx context.Context) error {
	if cl, ok := c.Cache.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return nil
}
