// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// entry is one client's active counting window.
type entry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is a process-local [Store] backed by a mutex-guarded map.
//
// # Deployment
//
// Suitable only for single-instance deployments: counters are not shared
// across processes. Multi-instance topologies must inject [RedisStore]
// instead, or each instance silently multiplies the effective limit.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	// now is swappable for tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Increment atomically bumps the counter for key, opening a fresh window
// when none is active or the previous one has elapsed.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.entries[key]
	if !found || now.After(current.resetAt) {
		current = &entry{count: 0, resetAt: now.Add(window)}
		s.entries[key] = current
	}

	current.count++
	return current.count, current.resetAt, nil
}

// Reset removes any active window for key.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Sweep drops expired windows to bound memory on long-lived processes.
// Called periodically by the owner; safe to call concurrently with Increment.
func (s *MemoryStore) Sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, current := range s.entries {
		if now.After(current.resetAt) {
			delete(s.entries, key)
		}
	}
}
