// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"context"
	"time"
)

// Backend names accepted by Config.Backend.
const (
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// backend is the byte-level store behind Cache.
type backend interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// deletePrefix removes every key under prefix, at most chunk keys per
	// round trip, and returns how many it removed.
	deletePrefix(ctx context.Context, prefix string, chunk int) (int, error)

	ping(ctx context.Context) error
	close() error
}
