package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"startrip/internal/adapters/observability"
)

// keyPrefix namespaces every entry so the API can share a Redis database.
const keyPrefix = "startrip:"

// Cache is a JSON value cache. It implements domain.Cache.
type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// Get reports a miss for absent keys. An entry that no longer decodes into
// dst is dropped and reported as a miss so callers refill it.
func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	k := keyPrefix + key
	v, err := r.c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		observability.ObserveCache("redis", "error")
		return false, err
	}
	if err := json.Unmarshal(v, dst); err != nil {
		log.Warn().Err(err).Str("key", k).Msg("dropping undecodable cache entry")
		_ = r.c.Del(ctx, k).Err()
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	observability.ObserveCache("redis", "hit")
	return true, nil
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if ttlSec <= 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := r.c.Set(ctx, keyPrefix+key, b, time.Duration(ttlSec)*time.Second).Err(); err != nil {
		observability.ObserveCache("redis", "error")
		return err
	}
	observability.ObserveCache("redis", "set")
	return nil
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, keyPrefix+key).Err()
}

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }
