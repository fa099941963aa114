// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/affinity/internal/embedding"
	"github.com/tomtom215/affinity/internal/validation"
)

// Recommendations handles POST /recommendations.
//
// @Summary Cached recommendations
// @Description Returns up to limit candidates ranked by embedding similarity. Served from the recommendation cache when possible. Users without an embedding get an empty list.
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param request body RecommendationsRequest true "Requesting user"
// @Success 200 {array} ScoredUser
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /recommendations [post]
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		NewResponseWriter(w, r).ValidationError(err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deps.RequestTimeout)
	defer cancel()

	recs, err := h.deps.Recommender.Recommend(ctx, req.Query())
	if err != nil {
		h.recommendError(w, r, err)
		return
	}

	out := make([]ScoredUser, len(recs))
	for i, rec := range recs {
		out[i] = ScoredUser{UserID: rec.UserID, Score: rec.Score}
	}
	NewResponseWriter(w, r).OK(out)
}

// Recommend handles POST /recommend.
//
// @Summary Fresh recommendations
// @Description Same ranking as /recommendations but always recomputed from the vector store. Accepts userId or user_id and excludeIds or exclude_ids.
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param request body RecommendRequest true "Requesting user"
// @Success 200 {object} RecommendResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /recommend [post]
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var raw RecommendRequest
	if err := decodeJSON(r, &raw); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	req := raw.Normalize()
	if err := validation.Struct(&req); err != nil {
		NewResponseWriter(w, r).ValidationError(err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deps.RequestTimeout)
	defer cancel()

	recs, err := h.deps.Recommender.RecommendDirect(ctx, req.Query())
	if err != nil {
		h.recommendError(w, r, err)
		return
	}
	if recs == nil {
		recs = []embedding.Recommendation{}
	}
	NewResponseWriter(w, r).OK(RecommendResponse{Recommendations: recs})
}

func (h *Handler) recommendError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)
	switch {
	case errors.Is(err, embedding.ErrInvalidUserID):
		rw.BadRequest(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		rw.Timeout("recommendation request timed out")
	default:
		rw.InternalError("failed to compute recommendations", err)
	}
}
