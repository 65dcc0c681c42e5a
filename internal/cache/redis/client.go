// Package redis backs the listing cache, the change-event bus, and the rate
// limiter with go-redis/v9. One shared connection pool serves all three.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client wraps a go-redis client shared by the cache, bus, and limiter.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection with a ping. The exchange
// treats Redis as required infrastructure: without the bus there are no live
// feed updates, so failing here beats starting degraded.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection. Open pub/sub subscriptions observe this
// as a closed message channel.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying returns the raw *redis.Client for the sibling components that
// need direct driver access.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
