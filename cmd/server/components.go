// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/affinity/internal/cache"
	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/embedding"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/store"
)

// components is the embedding pipeline wired against its backing stores.
type components struct {
	store       *store.Store
	cache       *cache.Cache
	trainer     *embedding.Trainer
	updater     *embedding.Updater
	recommender *embedding.Recommender
}

// loadConfig loads configuration and initializes the global logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Service:   "affinity",
		Version:   version,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

func storeConfig(cfg *config.Config) store.Config {
	return store.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		IndexMethod:     cfg.Embedding.IndexMethod,
	}
}

func cacheConfig(cfg *config.Config) cache.Config {
	return cache.Config{
		Backend:         cfg.Cache.Backend,
		TTL:             cfg.Cache.TTL,
		KeyPrefix:       cfg.Cache.KeyPrefix,
		InvalidateChunk: cfg.Cache.InvalidateChunk,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		},
		Badger: cache.BadgerConfig{
			Path:     cfg.Cache.Badger.Path,
			InMemory: cfg.Cache.Badger.InMemory,
		},
	}
}

// openStore connects to PostgreSQL and bootstraps the schema.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, storeConfig(cfg), logging.WithComponent("store"))
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return st, nil
}

// openComponents connects the store and cache and builds the pipeline on
// top of them. The caller owns the result and must call close.
func openComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("index_method", cfg.Embedding.IndexMethod).
		Bool("behavior_events", st.BehaviorAvailable()).
		Msg("Database initialized")

	c, err := cache.New(ctx, cacheConfig(cfg), logging.WithComponent("cache"))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	logging.Info().Str("backend", c.Backend()).Msg("Recommendation cache initialized")

	logger := logging.Logger()
	encoder := embedding.NewEncoder(st)
	composer := embedding.NewComposer(st, cfg.Embedding.ModelVersion)

	return &components{
		store: st,
		cache: c,
		trainer: embedding.NewTrainer(
			embedding.TrainerConfig{
				Window:   cfg.Embedding.Window,
				MinUsers: cfg.Embedding.MinUsersForTraining,
			},
			st, encoder, embedding.NewSolver(embedding.DefaultSolverConfig()), composer, c, logger),
		updater: embedding.NewUpdater(encoder, st, composer, logger),
		recommender: embedding.NewRecommender(embedding.RecommenderConfig{
			DefaultLimit: cfg.Recommend.DefaultLimit,
			MaxLimit:     cfg.Recommend.MaxLimit,
			Slack:        cfg.Recommend.Slack,
		}, st, c, logger),
	}, nil
}

func (c *components) close() {
	if err := c.cache.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing cache")
	}
	if err := c.store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}
