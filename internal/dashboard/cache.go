package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const recentEventsKey = "aegismesh:dashboard:events:recent"

// Cache is a short-TTL Redis cache in front of the event listing
// query. It is strictly an optimization: every miss or Redis error
// falls through to Postgres.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache connects to Redis. TTLs below one second fall back to ten
// seconds.
func NewCache(addr string, ttl time.Duration) *Cache {
	if ttl < time.Second {
		ttl = 10 * time.Second
	}
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

// GetRecent returns the cached listing payload, if any.
func (c *Cache) GetRecent(ctx context.Context) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, recentEventsKey).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetRecent stores a listing payload for the configured TTL.
func (c *Cache) SetRecent(ctx context.Context, payload []byte) {
	if c == nil {
		return
	}
	_ = c.rdb.Set(ctx, recentEventsKey, payload, c.ttl).Err()
}

// Invalidate drops the cached listing after an insert.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	_ = c.rdb.Del(ctx, recentEventsKey).Err()
}

// Ping verifies the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("dashboard: cache not configured")
	}
	return c.rdb.Ping(ctx).Err()
}

// Close releases the Redis client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
