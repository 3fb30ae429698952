package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"impacttrip/internal/adapters/observability"
	"impacttrip/internal/domain"
)

// Cache serves both the catalog read cache (JSON values with TTL) and the
// criteria blobs (raw bytes, no expiry).
type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

var (
	_ domain.Cache = (*Cache)(nil)
	_ domain.KV    = (*Cache)(nil)
)

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }

// Get decodes the JSON value at key into dst; false on a miss.
func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok, err := r.GetRaw(ctx, key)
	if err != nil || !ok {
		if err == nil {
			observability.ObserveCache("redis", "miss")
		}
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, key).Err()
}

// GetRaw and PutRaw implement domain.KV; raw values never expire.
func (r *Cache) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *Cache) PutRaw(ctx context.Context, key string, b []byte) error {
	return r.c.Set(ctx, key, b, 0).Err()
}
