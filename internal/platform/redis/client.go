// Package redis opens the connection behind the shared statistics cache.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"parrainage/internal/platform/config"
)

// Client is the process-wide Redis connection pool.
type Client struct {
	*redis.Client
}

// New connects and pings. An empty URL returns nil: the caller falls back to
// the in-process cache store.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	applyConfig(opts, cfg)

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// applyConfig overrides URL-derived options with the non-zero settings of cfg.
func applyConfig(opts *redis.Options, cfg config.RedisConfig) {
	opts.ClientName = "parrainage"
	// Lock and stale reads must give up with the caller's context.
	opts.ContextTimeoutEnabled = true
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
}
