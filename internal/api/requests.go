// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"time"

	"github.com/tomtom215/affinity/internal/embedding"
)

// RecommendationsRequest is the body of POST /recommendations and the
// normalised form of POST /recommend.
type RecommendationsRequest struct {
	UserID     string   `json:"userId" validate:"required,userid"`
	Limit      int      `json:"limit,omitempty"`
	ExcludeIDs []string `json:"excludeIds,omitempty" validate:"max=5000,dive,userid"`
}

// Query converts the request to an embedding query.
func (req RecommendationsRequest) Query() embedding.Query {
	return embedding.Query{UserID: req.UserID, Limit: req.Limit, Exclude: req.ExcludeIDs}
}

// RecommendRequest accepts both camelCase and snake_case keys. When both are
// present the camelCase value wins.
type RecommendRequest struct {
	UserID          string   `json:"userId,omitempty"`
	UserIDSnake     string   `json:"user_id,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	ExcludeIDs      []string `json:"excludeIds,omitempty"`
	ExcludeIDsSnake []string `json:"exclude_ids,omitempty"`
}

// Normalize folds the aliases into a RecommendationsRequest.
func (req RecommendRequest) Normalize() RecommendationsRequest {
	out := RecommendationsRequest{
		UserID:     req.UserID,
		Limit:      req.Limit,
		ExcludeIDs: req.ExcludeIDs,
	}
	if out.UserID == "" {
		out.UserID = req.UserIDSnake
	}
	if out.ExcludeIDs == nil {
		out.ExcludeIDs = req.ExcludeIDsSnake
	}
	return out
}

// UpdateEmbeddingRequest is the body of POST /update-embedding. userId is
// accepted as an alias.
type UpdateEmbeddingRequest struct {
	UserID      string `json:"user_id" validate:"required,userid"`
	UserIDCamel string `json:"userId,omitempty" validate:"-"`
}

func (req *UpdateEmbeddingRequest) normalize() {
	if req.UserID == "" {
		req.UserID = req.UserIDCamel
	}
}

// ScoredUser is one element of the /recommendations response.
type ScoredUser struct {
	UserID string  `json:"userId"`
	Score  float64 `json:"score"`
}

// RecommendResponse is the /recommend response.
type RecommendResponse struct {
	Recommendations []embedding.Recommendation `json:"recommendations"`
}

// UpdateEmbeddingResponse is the /update-embedding response.
type UpdateEmbeddingResponse struct {
	Status string `json:"status"`
	UserID string `json:"user_id"`
}

// BatchUpdateResponse is the /batch-update response.
type BatchUpdateResponse struct {
	UpdatedCount    int     `json:"updated_count"`
	DurationSeconds float64 `json:"duration_seconds"`
	ModelVersion    string  `json:"model_version"`
	Skipped         bool    `json:"skipped,omitempty"`
	Reason          string  `json:"reason,omitempty"`
}

// HealthResponse is the /health response.
type HealthResponse struct {
	Status         string               `json:"status"`
	ModelVersion   string               `json:"model_version"`
	EmbeddingCount int64                `json:"embedding_count"`
	LastUpdate     *time.Time           `json:"last_update"`
	LastTraining   *embedding.RunStatus `json:"last_training,omitempty"`
	CacheBackend   string               `json:"cache_backend,omitempty"`
	UptimeSeconds  float64              `json:"uptime_seconds"`
}
