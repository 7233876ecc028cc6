// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

/*
Package ratelimit implements the fixed-window request limiter gating all
security-sensitive authentication routes.

Architecture:

  - Limiter: The fixed-window policy (max requests per window per client key).
  - Store: An injected counter backend. The in-memory store serves a single
    process; the Redis store centralizes counters across instances so
    horizontal scaling does not weaken the limit.

The counter increment is atomic per key in both backends, so concurrent
requests sharing a key can never exceed the window maximum.
*/
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one limiter check.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Remaining is the number of requests left in the current window.
	Remaining int
	// ResetAt is when the current window closes and the counter restarts.
	ResetAt time.Time
}

// RetryAfterSeconds returns the whole seconds until the window resets,
// rounded up so clients never retry early.
func (r Result) RetryAfterSeconds(now time.Time) int {
	remaining := r.ResetAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// Store is the counter backend contract.
//
// Increment must atomically bump the counter for key, creating (or resetting)
// the window when none is active, and return the post-increment count together
// with the window deadline.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// Limiter applies a fixed-window policy on top of a [Store].
type Limiter struct {
	store  Store
	max    int
	window time.Duration
}

// NewLimiter constructs a Limiter allowing max requests per window.
func NewLimiter(store Store, max int, window time.Duration) *Limiter {
	return &Limiter{store: store, max: max, window: window}
}

// Max returns the configured per-window request maximum.
func (l *Limiter) Max() int { return l.max }

// Check records one request for the client key and reports whether it is
// within the window budget.
//
// The increment happens before the comparison (increment-then-check), so two
// concurrent requests at the boundary cannot both observe the pre-increment
// count and slip through.
func (l *Limiter) Check(ctx context.Context, clientKey string) (Result, error) {
	count, resetAt, err := l.store.Increment(ctx, clientKey, l.window)
	if err != nil {
		return Result{}, err
	}

	if count > int64(l.max) {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Result{
		Allowed:   true,
		Remaining: l.max - int(count),
		ResetAt:   resetAt,
	}, nil
}

// Reset clears any active window for the client key.
func (l *Limiter) Reset(ctx context.Context, clientKey string) error {
	return l.store.Reset(ctx, clientKey)
}
