package storage

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// absent marks a key known not to exist so repeated misses skip the backend.
type absent struct{}

type cached struct {
	Store
	cache *cache.Cache
}

// WithCache puts a read-through TTL cache in front of a slow backend (redis,
// s3, postgres). Writes go to the backend first and only then to the cache, so
// a failed write never leaves a value cached that the backend does not hold.
// A zero ttl disables caching.
func WithCache(s Store, ttl time.Duration) Store {
	if ttl <= 0 {
		return s
	}
	return &cached{Store: s, cache: cache.New(ttl, 2*ttl)}
}

func (c *cached) Get(ctx context.Context, key string) (string, bool, error) {
	if v, found := c.cache.Get(key); found {
		switch val := v.(type) {
		case string:
			return val, true, nil
		case absent:
			return "", false, nil
		}
	}
	value, ok, err := c.Store.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if ok {
		c.cache.Set(key, value, cache.DefaultExpiration)
	} else {
		c.cache.Set(key, absent{}, cache.DefaultExpiration)
	}
	return value, ok, nil
}

func (c *cached) Set(ctx context.Context, key, value string) error {
	if err := c.Store.Set(ctx, key, value); err != nil {
		c.cache.Delete(key)
		return err
	}
	c.cache.Set(key, value, cache.DefaultExpiration)
	return nil
}

func (c *cached) Remove(ctx context.Context, key string) error {
	if err := c.Store.Remove(ctx, key); err != nil {
		c.cache.Delete(key)
		return err
	}
	c.cache.Set(key, absent{}, cache.DefaultExpiration)
	return nil
}
