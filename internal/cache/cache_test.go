// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/affinity/internal/embedding"
)

const testPrefix = "ml_recs:"

func newTestCache(t *testing.T, backend string) *Cache {
	t.Helper()
	ctx := context.Background()

	cfg := Config{
		Backend:         backend,
		TTL:             time.Hour,
		KeyPrefix:       testPrefix,
		InvalidateChunk: 2,
		Badger:          BadgerConfig{InMemory: true},
	}
	if backend == BackendRedis {
		mr := miniredis.RunT(t)
		cfg.Redis = RedisConfig{Addr: mr.Addr()}
	}

	c, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

var allBackends = []string{BackendMemory, BackendRedis, BackendBadger}

func sampleRecs() []embedding.Recommendation {
	return []embedding.Recommendation{
		{UserID: "u2", Score: 0.9731},
		{UserID: "u3", Score: 0.5},
	}
}

func TestCache_RoundTrip(t *testing.T) {
	for _, backend := range allBackends {
		t.Run(backend, func(t *testing.T) {
			c := newTestCache(t, backend)
			ctx := context.Background()

			_, ok, err := c.Get(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.Set(ctx, "u1", sampleRecs()))

			got, ok, err := c.Get(ctx, "u1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, sampleRecs(), got)
			assert.Equal(t, backend, c.Backend())
			assert.NoError(t, c.Ping(ctx))
		})
	}
}

func TestCache_InvalidateAllOnlyTouchesPrefix(t *testing.T) {
	for _, backend := range allBackends {
		t.Run(backend, func(t *testing.T) {
			c := newTestCache(t, backend)
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				require.NoError(t, c.Set(ctx, fmt.Sprintf("u%d", i), sampleRecs()))
			}
			require.NoError(t, c.backend.set(ctx, "session:abc", []byte("keep"), time.Hour))

			n, err := c.InvalidateAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, 5, n)

			for i := 0; i < 5; i++ {
				_, ok, err := c.Get(ctx, fmt.Sprintf("u%d", i))
				require.NoError(t, err)
				assert.False(t, ok)
			}
			_, ok, err := c.backend.get(ctx, "session:abc")
			require.NoError(t, err)
			assert.True(t, ok, "keys outside the prefix must survive")

			n, err = c.InvalidateAll(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestCache_UnreadableEntryIsMiss(t *testing.T) {
	c := newTestCache(t, BackendMemory)
	ctx := context.Background()

	require.NoError(t, c.backend.set(ctx, c.Key("u1"), []byte("{not json"), time.Hour))

	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_RedisTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), Config{
		Backend:   BackendRedis,
		TTL:       time.Minute,
		KeyPrefix: testPrefix,
		Redis:     RedisConfig{Addr: mr.Addr()},
	}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "u1", sampleRecs()))
	assert.Equal(t, time.Minute, mr.TTL(testPrefix+"u1"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "memcached"}, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown cache backend")

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	addr := mr.Addr()
	mr.Close()

	_, err = New(context.Background(), Config{Backend: BackendRedis, Redis: RedisConfig{Addr: addr}}, zerolog.Nop())
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestNew_DefaultsToMemory(t *testing.T) {
	c, err := New(context.Background(), Config{KeyPrefix: testPrefix}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, c.Backend())
	assert.Equal(t, time.Hour, c.ttl)
	assert.Equal(t, 100, c.chunk)
}

// failingBackend fails every call and counts attempts.
type failingBackend struct {
	calls   atomic.Int32
	deletes atomic.Int32
}

var errBackendDown = errors.New("backend down")

func (f *failingBackend) get(context.Context, string) ([]byte, bool, error) {
	f.calls.Add(1)
	return nil, false, errBackendDown
}

func (f *failingBackend) set(context.Context, string, []byte, time.Duration) error {
	f.calls.Add(1)
	return errBackendDown
}

func (f *failingBackend) deletePrefix(context.Context, string, int) (int, error) {
	f.deletes.Add(1)
	return 0, errBackendDown
}

func (f *failingBackend) ping(context.Context) error { return errBackendDown }
func (f *failingBackend) close() error               { return nil }

func TestCache_BreakerOpensAndDegradesToMiss(t *testing.T) {
	fb := &failingBackend{}
	c := newCache(fb, Config{
		Backend:   "failing",
		KeyPrefix: testPrefix,
		Breaker:   BreakerConfig{FailureThreshold: 3, Timeout: time.Hour},
	}, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := c.Get(ctx, "u1")
		assert.ErrorIs(t, err, errBackendDown)
	}

	// Open: no backend traffic, no errors.
	_, ok, err := c.Get(ctx, "u1")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Set(ctx, "u1", sampleRecs()))
	assert.EqualValues(t, 3, fb.calls.Load())

	// Invalidation is never short-circuited.
	_, err = c.InvalidateAll(ctx)
	assert.ErrorIs(t, err, errBackendDown)
	assert.EqualValues(t, 1, fb.deletes.Load())
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, "ml_recs:", escapeGlob("ml_recs:"))
	assert.Equal(t, `a\*b\?\[c\]`, escapeGlob("a*b?[c]"))
}
