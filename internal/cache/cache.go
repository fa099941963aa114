// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/affinity/internal/embedding"
)

// Config selects and tunes a backend.
type Config struct {
	Backend         string
	TTL             time.Duration
	KeyPrefix       string
	InvalidateChunk int
	MemoryCapacity  int
	Redis           RedisConfig
	Badger          BadgerConfig
	Breaker         BreakerConfig
}

// Cache implements embedding.RecommendationCache.
type Cache struct {
	backend     backend
	backendName string
	prefix      string
	ttl         time.Duration
	chunk       int
	breaker     *gobreaker.CircuitBreaker[[]byte]
	logger      zerolog.Logger
}

var _ embedding.RecommendationCache = (*Cache)(nil)

// New connects to the configured backend. A redis backend must answer PING.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Cache, error) {
	var (
		b   backend
		err error
	)
	switch cfg.Backend {
	case BackendRedis:
		b, err = newRedisBackend(ctx, cfg.Redis)
	case BackendBadger:
		b, err = newBadgerBackend(cfg.Badger)
	case BackendMemory, "":
		cfg.Backend = BackendMemory
		b = newMemoryBackend(cfg.MemoryCapacity, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return newCache(b, cfg, logger), nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newCache(b backend, cfg Config, logger zerolog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.InvalidateChunk <= 0 {
		cfg.InvalidateChunk = 100
	}
	if cfg.Breaker == (BreakerConfig{}) {
		cfg.Breaker = DefaultBreakerConfig()
	}
	logger = logger.With().Str("component", "cache").Str("backend", cfg.Backend).Logger()

	return &Cache{
		backend:     b,
		backendName: cfg.Backend,
		prefix:      cfg.KeyPrefix,
		ttl:         cfg.TTL,
		chunk:       cfg.InvalidateChunk,
		breaker:     newBreaker(cfg.Breaker, logger),
		logger:      logger,
	}
}

// Backend returns the backend name.
func (c *Cache) Backend() string { return c.backendName }

// Key returns the storage key for userID.
func (c *Cache) Key(userID string) string { return c.prefix + userID }

// Get returns the cached list for userID. An open breaker or an unreadable
// entry is a miss, not an error.
func (c *Cache) Get(ctx context.Context, userID string) ([]embedding.Recommendation, bool, error) {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		b, ok, err := c.backend.get(ctx, c.Key(userID))
		if err != nil || !ok {
			return nil, err
		}
		return b, nil
	})
	if isBreakerRejection(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if raw == nil {
		return nil, false, nil
	}

	var recs []embedding.Recommendation
	if err := json.Unmarshal(raw, &recs); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("discarding unreadable cache entry")
		return nil, false, nil
	}
	return recs, true, nil
}

// Set stores recs for userID with the configured TTL. Skipped while the
// breaker is open.
func (c *Cache) Set(ctx context.Context, userID string, recs []embedding.Recommendation) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}

	_, err = c.breaker.Execute(func() ([]byte, error) {
		return nil, c.backend.set(ctx, c.Key(userID), raw, c.ttl)
	})
	if isBreakerRejection(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// InvalidateAll deletes every entry under the key prefix.
func (c *Cache) InvalidateAll(ctx context.Context) (int, error) {
	n, err := c.backend.deletePrefix(ctx, c.prefix, c.chunk)
	if err != nil {
		return n, fmt.Errorf("cache invalidate: %w", err)
	}
	c.logger.Info().Int("keys", n).Msg("recommendation cache invalidated")
	return n, nil
}

// Ping checks the backend.
func (c *Cache) Ping(ctx context.Context) error {
	return c.backend.ping(ctx)
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.backend.close()
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
