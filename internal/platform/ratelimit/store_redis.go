// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mahirlabib/credo/internal/platform/constants"
)

// RedisStore is a centralized [Store] for multi-instance deployments.
//
// # Atomicity
//
// INCR is atomic on the Redis side, so the fixed-window invariant holds no
// matter how many API instances share the counter. The window deadline is
// carried by the key's TTL: the first increment of a window sets it, and
// every later increment reads it back to report ResetAt.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Increment atomically bumps the counter for key, starting the window TTL on
// the first request of a window.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := constants.RedisPrefixRateLimit + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit: redis incr failed: %w", err)
	}

	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("ratelimit: redis expire failed: %w", err)
		}
		return count, time.Now().Add(window), nil
	}

	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit: redis ttl failed: %w", err)
	}

	// A key that lost its TTL (e.g. Redis restarted mid-window) would count
	// forever; re-arm it so the window self-heals.
	if ttl < 0 {
		ttl = window
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("ratelimit: redis expire failed: %w", err)
		}
	}

	return count, time.Now().Add(ttl), nil
}

// Reset removes any active window for key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, constants.RedisPrefixRateLimit+key).Err(); err != nil {
		return fmt.Errorf("ratelimit: redis del failed: %w", err)
	}
	return nil
}
