// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"time"

	"github.com/tomtom215/affinity/internal/embedding"
)

// Recommender serves ranked candidates. *embedding.Recommender satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, q embedding.Query) ([]embedding.Recommendation, error)
	RecommendDirect(ctx context.Context, q embedding.Query) ([]embedding.Recommendation, error)
}

// EmbeddingUpdater refreshes one user. *embedding.Updater satisfies it.
type EmbeddingUpdater interface {
	Update(ctx context.Context, userID string) (*embedding.Embedding, error)
}

// Trainer runs batch training. *embedding.Trainer satisfies it.
type Trainer interface {
	Train(ctx context.Context, trigger string) (*embedding.TrainResult, error)
	LastRun() (embedding.RunStatus, bool)
	ModelVersion() string
}

// StoreHealth is the subset of the vector store used by /health.
type StoreHealth interface {
	Ping(ctx context.Context) error
	CountEmbeddings(ctx context.Context) (int64, error)
	LastUpdate(ctx context.Context) (*time.Time, error)
}

// Deps are the collaborators of Handler. Every field except CacheBackend
// is required.
type Deps struct {
	Recommender Recommender
	Updater     EmbeddingUpdater
	Trainer     Trainer
	Store       StoreHealth

	// CacheBackend is reported by /health.
	CacheBackend string

	// RequestTimeout bounds recommendation and update requests.
	RequestTimeout time.Duration

	// TrainTimeout bounds /batch-update. The run is detached from the
	// client connection so a dropped client does not abort it.
	TrainTimeout time.Duration

	// HealthTimeout bounds the store checks in /health.
	HealthTimeout time.Duration
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_recommend.go: /recommendations, /recommend
//   - handlers_embedding.go: /update-embedding, /batch-update
//   - handlers_health.go: /health
type Handler struct {
	deps      Deps
	startTime time.Time
}

// NewHandler fills timeout defaults and returns a handler.
func NewHandler(deps Deps) *Handler {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 10 * time.Second
	}
	if deps.TrainTimeout <= 0 {
		deps.TrainTimeout = 30 * time.Minute
	}
	if deps.HealthTimeout <= 0 {
		deps.HealthTimeout = 2 * time.Second
	}
	return &Handler{deps: deps, startTime: time.Now()}
}
