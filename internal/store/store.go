// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/embedding"
	"github.com/tomtom215/affinity/internal/metrics"
)

// Index methods accepted by Config.IndexMethod.
const (
	IndexHNSW    = "hnsw"
	IndexIVFFlat = "ivfflat"
)

// Config holds connection and index settings.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	IndexMethod     string
	UpsertChunkSize int
}

// Store implements the embedding package's data interfaces on PostgreSQL.
type Store struct {
	db     *sql.DB
	cfg    Config
	logger zerolog.Logger

	behaviorAvailable atomic.Bool
	detectOnce         sync.Once

	indexMu    sync.Mutex
	indexReady bool
}

var (
	_ embedding.SignalSource  = (*Store)(nil)
	_ embedding.ProfileSource = (*Store)(nil)
	_ embedding.VectorStore   = (*Store)(nil)
)

// Open connects to PostgreSQL and verifies the connection.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("database url is empty")
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db, cfg, logger), nil
}

// New wraps an existing connection pool.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(db *sql.DB, cfg Config, logger zerolog.Logger) *Store {
	if cfg.IndexMethod == "" {
		cfg.IndexMethod = IndexHNSW
	}
	if cfg.UpsertChunkSize <= 0 {
		cfg.UpsertChunkSize = 500
	}
	return &Store{
		db:     db,
		cfg:    cfg,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// Init bootstraps the schema and detects optional tables. It is idempotent.
func (s *Store) Init(ctx context.Context) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	return s.DetectCapabilities(ctx)
}

// DB exposes the pool for callers that need raw access.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// BehaviorAvailable reports the cached capability flag.
func (s *Store) BehaviorAvailable() bool {
	return s.behaviorAvailable.Load()
}

// observe records duration and outcome of one store operation.
func observe(op string, start time.Time, err error) {
	metrics.RecordStoreQuery(op, time.Since(start), err)
}

// PostgreSQL error codes the store branches on.
const (
	codeUndefinedTable pq.ErrorCode = "42P01"
	codeInvalidText    pq.ErrorCode = "22P02"
)

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

func isUndefinedTable(err error) bool { return hasCode(err, codeUndefinedTable) }

// isInvalidText matches ids that cannot be cast to the users key type,
// e.g. a non-UUID string against a uuid column.
func isInvalidText(err error) bool { return hasCode(err, codeInvalidText) }
