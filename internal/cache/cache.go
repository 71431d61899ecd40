package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// JSONCache is a read-through cache of JSON documents in Redis. Concurrent
// misses for the same key share one load.
type JSONCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	sf     singleflight.Group
}

func NewJSONCache(client *redis.Client, prefix string, ttl time.Duration) *JSONCache {
	return &JSONCache{client: client, prefix: prefix, ttl: ttl}
}

// GetOrLoad decodes the cached value for key into out. On a miss it calls
// load, stores the result and decodes that instead. Redis failures degrade to
// calling load directly.
func (c *JSONCache) GetOrLoad(ctx context.Context, key string, out interface{}, load func(ctx context.Context) (interface{}, error)) error {
	fullKey := c.key(key)
	if c.read(ctx, fullKey, out) {
		return nil
	}

	raw, err, _ := c.sf.Do(fullKey, func() (interface{}, error) {
		var cached json.RawMessage
		if c.read(ctx, fullKey, &cached) {
			return []byte(cached), nil
		}

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cache value: %w", err)
		}
		if err := c.client.Set(ctx, fullKey, data, c.ttlWithJitter()).Err(); err != nil {
			log.Printf("cache: failed to store %s: %v", fullKey, err)
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), out)
}

func (c *JSONCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *JSONCache) read(ctx context.Context, key string, out interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache: failed to read %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("cache: dropping undecodable %s: %v", key, err)
		return false
	}
	return true
}

func (c *JSONCache) key(k string) string {
	return c.prefix + ":" + k
}

func (c *JSONCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
