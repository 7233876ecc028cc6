// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

// Package redis provides a managed Redis client for the Credo application.
//
// Redis backs the distributed fixed-window rate limiter. When no Redis URL is
// configured the application falls back to an in-process limiter store, so
// all helpers here treat Redis as optional infrastructure.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	// connectTimeout bounds the initial connection validation.
	connectTimeout = 5 * time.Second
	// pingTimeout is the maximum duration for a health check ping.
	pingTimeout = 2 * time.Second
)

// NewClient creates a Redis client from a redis:// URL and validates the
// connection before returning it.
func NewClient(ctx context.Context, url string, logger *slog.Logger) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	opts.DialTimeout = connectTimeout
	client := goredis.NewClient(opts)

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))

	return client, nil
}

// Ping verifies that the Redis connection is healthy.
func Ping(ctx context.Context, client *goredis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}
