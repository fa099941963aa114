// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/metrics"
)

// RecommenderConfig bounds result sizes.
type RecommenderConfig struct {
	DefaultLimit int
	MaxLimit     int
	Slack        int
}

// DefaultRecommenderConfig returns the production limits.
func DefaultRecommenderConfig() RecommenderConfig {
	return RecommenderConfig{DefaultLimit: 50, MaxLimit: 500, Slack: 20}
}

// Query is one recommendation request.
type Query struct {
	UserID  string
	Limit   int
	Exclude []string
}

// Recommender answers top-N similarity queries.
type Recommender struct {
	cfg    RecommenderConfig
	store  VectorStore
	cache  RecommendationCache
	logger zerolog.Logger
}

// NewRecommender creates a recommender. cache may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRecommender(cfg RecommenderConfig, store VectorStore, cache RecommendationCache, logger zerolog.Logger) *Recommender {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 500
	}
	if cfg.Slack < 0 {
		cfg.Slack = 0
	}
	return &Recommender{
		cfg:    cfg,
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "recommender").Logger(),
	}
}

func (r *Recommender) limit(requested int) int {
	switch {
	case requested <= 0:
		return r.cfg.DefaultLimit
	case requested > r.cfg.MaxLimit:
		return r.cfg.MaxLimit
	default:
		return requested
	}
}

// Recommend serves from the cache when the cached list fills the request.
// Otherwise the unfiltered neighbour list is fetched and cached before the
// query's exclusions are applied.
func (r *Recommender) Recommend(ctx context.Context, q Query) ([]Recommendation, error) {
	if q.UserID == "" {
		return nil, ErrInvalidUserID
	}
	start := time.Now()
	defer func() { metrics.RecordRecommendation(true, time.Since(start)) }()

	limit := r.limit(q.Limit)

	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, q.UserID)
		switch {
		case err != nil:
			metrics.RecordCacheLookup(metrics.CacheError)
			l := logging.With(ctx, r.logger)
			l.Warn().Err(err).Str("user_id", q.UserID).Msg("recommendation cache read failed")
		case ok:
			// An entry cached for a smaller request cannot fill this one.
			if recs := filterAndTruncate(cached, q.Exclude, limit); len(recs) == limit {
				metrics.RecordCacheLookup(metrics.CacheHit)
				return recs, nil
			}
			metrics.RecordCacheLookup(metrics.CacheMiss)
			r.logger.Debug().Str("user_id", q.UserID).Int("cached", len(cached)).Int("limit", limit).
				Msg("cached recommendations too short, refetching")
		default:
			metrics.RecordCacheLookup(metrics.CacheMiss)
		}
	}

	superset, err := r.fetch(ctx, q.UserID, limit+len(q.Exclude)+r.cfg.Slack)
	if err != nil {
		return nil, err
	}

	if r.cache != nil && len(superset) > 0 {
		if err := r.cache.Set(ctx, q.UserID, superset); err != nil {
			l := logging.With(ctx, r.logger)
			l.Warn().Err(err).Str("user_id", q.UserID).Msg("recommendation cache write failed")
		}
	}

	return filterAndTruncate(superset, q.Exclude, limit), nil
}

// RecommendDirect always queries the vector store and never touches the
// cache.
func (r *Recommender) RecommendDirect(ctx context.Context, q Query) ([]Recommendation, error) {
	if q.UserID == "" {
		return nil, ErrInvalidUserID
	}
	start := time.Now()
	defer func() { metrics.RecordRecommendation(false, time.Since(start)) }()

	limit := r.limit(q.Limit)
	superset, err := r.fetch(ctx, q.UserID, limit+len(q.Exclude)+r.cfg.Slack)
	if err != nil {
		return nil, err
	}
	return filterAndTruncate(superset, q.Exclude, limit), nil
}

func (r *Recommender) fetch(ctx context.Context, userID string, n int) ([]Recommendation, error) {
	neighbors, err := r.store.Nearest(ctx, userID, n)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbours: %w", err)
	}

	recs := make([]Recommendation, 0, len(neighbors))
	var undefined []Recommendation
	for _, nb := range neighbors {
		if nb.UserID == userID {
			continue
		}
		rec := Recommendation{UserID: nb.UserID, Score: Score(nb.Similarity)}
		if math.IsNaN(nb.Similarity) {
			undefined = append(undefined, rec)
			continue
		}
		recs = append(recs, rec)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	return append(recs, undefined...), nil
}

// Score maps cosine similarity in [-1,1] to [0,1], rounded half away from
// zero to four decimals. NaN scores 0.
func Score(similarity float64) float64 {
	if math.IsNaN(similarity) {
		return 0
	}
	return math.Round(clamp01((similarity+1)/2)*1e4) / 1e4
}

func filterAndTruncate(recs []Recommendation, exclude []string, limit int) []Recommendation {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	out := make([]Recommendation, 0, min(limit, len(recs)))
	for _, rec := range recs {
		if len(out) == limit {
			break
		}
		if _, ok := skip[rec.UserID]; ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}
