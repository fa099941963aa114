// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"context"
	"time"
)

// DefaultMemoryCapacity bounds the in-process backend.
const DefaultMemoryCapacity = 10000

type memoryBackend struct {
	lru *LRU[[]byte]
}

func newMemoryBackend(capacity int, ttl time.Duration) *memoryBackend {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &memoryBackend{lru: NewLRU[[]byte](capacity, ttl)}
}

func (m *memoryBackend) get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *memoryBackend) set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.lru.AddWithTTL(key, value, ttl)
	return nil
}

func (m *memoryBackend) deletePrefix(_ context.Context, prefix string, _ int) (int, error) {
	return m.lru.RemovePrefix(prefix), nil
}

func (m *memoryBackend) ping(context.Context) error { return nil }

func (m *memoryBackend) close() error { return nil }
