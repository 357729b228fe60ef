package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCacheTTL bounds how long a cached profile entry survives after it is
// written (reads do not extend it); profiles are content-addressed and
// immutable, so this is purely a memory-pressure valve, never a correctness
// mechanism.
const redisCacheTTL = 24 * time.Hour

// RedisCache front-ends the filesystem profile store with a read-through
// cache, grounded in the go-redis client wiring used elsewhere in this
// codebase for shared runtime state. It is never a second source of truth:
// a miss or any Redis error falls straight back to disk, and the loader
// ignores a write failure here, so it is never fatal.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to addr. The connection is lazy; go-redis dials on
// first use, so construction never fails on a down Redis.
func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func redisKey(id, version string) string {
	return fmt.Sprintf("execgate:profile:%s/%s", id, version)
}

// Get returns the raw file bytes for (id, version), or ok=false on a miss
// or any Redis-side failure.
func (c *RedisCache) Get(ctx context.Context, id, version string) (data []byte, ok bool) {
	b, err := c.client.Get(ctx, redisKey(id, version)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

// Set installs the raw file bytes for (id, version). Errors are the
// caller's to log; a failed cache write never affects correctness since
// disk remains authoritative.
func (c *RedisCache) Set(ctx context.Context, id, version string, data []byte) error {
	return c.client.Set(ctx, redisKey(id, version), data, redisCacheTTL).Err()
}
