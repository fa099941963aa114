// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/affinity/internal/logging"
)

// Health statuses.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Health handles GET /health.
//
// @Summary Service health
// @Description Reports store connectivity, the embedding count, the newest embedding timestamp and the last training run. Returns 503 with status degraded when the store is unreachable.
// @Tags Core
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.deps.HealthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:        StatusOK,
		ModelVersion:  h.deps.Trainer.ModelVersion(),
		CacheBackend:  h.deps.CacheBackend,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if last, ok := h.deps.Trainer.LastRun(); ok {
		resp.LastTraining = &last
	}

	if err := h.checkStore(ctx, &resp); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Msg("health check: store unavailable")
		resp.Status = StatusDegraded
		NewResponseWriter(w, r).JSON(http.StatusServiceUnavailable, resp)
		return
	}

	NewResponseWriter(w, r).OK(resp)
}

func (h *Handler) checkStore(ctx context.Context, resp *HealthResponse) error {
	if err := h.deps.Store.Ping(ctx); err != nil {
		return err
	}
	count, err := h.deps.Store.CountEmbeddings(ctx)
	if err != nil {
		return err
	}
	last, err := h.deps.Store.LastUpdate(ctx)
	if err != nil {
		return err
	}
	resp.EmbeddingCount = count
	resp.LastUpdate = last
	return nil
}
