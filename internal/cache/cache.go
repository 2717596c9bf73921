// Package cache wraps Redis for hot-path reads: candle windows, the
// latest scanner payload per timeframe, and on-demand relative metrics.
// The cache is best-effort; callers log errors and fall through to the
// store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Cache is a thin wrapper over a Redis client.
type Cache struct {
	client *goredis.Client
}

// New connects to Redis using a redis:// URL and pings the server.
func New(redisURL string) (*Cache, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[cache] connected to %s", opts.Addr)
	return &Cache{client: client}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *goredis.Client) *Cache {
	return &Cache{client: client}
}

// disabled reports whether there is no backing client. A nil Cache (or
// one without a client) degrades to all misses with writes dropped, so
// the scanner runs store-only when REDIS_URL is unset.
func (c *Cache) disabled() bool { return c == nil || c.client == nil }

// Client returns the underlying Redis client for health checks. Nil
// when the cache is disabled.
func (c *Cache) Client() *goredis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// SetJSON marshals v and stores it under key. ttl <= 0 means no expiry.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if c.disabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	return c.SetBytes(ctx, key, data, ttl)
}

// GetJSON loads key into dest. Returns false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.GetBytes(ctx, key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SetBytes stores raw bytes under key. ttl <= 0 means no expiry.
func (c *Cache) SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if c.disabled() {
		return nil
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// GetBytes returns the raw value for key, or nil on a miss.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if c.disabled() {
		return nil, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return data, nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if c.disabled() {
		return errors.New("cache disabled")
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	if c.disabled() {
		return nil
	}
	return c.client.Close()
}
