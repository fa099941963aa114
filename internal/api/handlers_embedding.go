// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/tomtom215/affinity/internal/embedding"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/validation"
)

// batchWriteGrace is the time left to write the response after a batch run
// used its whole TrainTimeout.
const batchWriteGrace = 30 * time.Second

// UpdateEmbedding handles POST /update-embedding.
//
// @Summary Refresh one embedding
// @Description Re-encodes the user's profile and rewrites the explicit block of the stored embedding. The latent block is kept.
// @Tags Embeddings
// @Accept json
// @Produce json
// @Param request body UpdateEmbeddingRequest true "User to refresh"
// @Success 200 {object} UpdateEmbeddingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "User has no profile and no embedding"
// @Failure 500 {object} ErrorResponse
// @Router /update-embedding [post]
func (h *Handler) UpdateEmbedding(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmbeddingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	req.normalize()
	if err := validation.Struct(&req); err != nil {
		NewResponseWriter(w, r).ValidationError(err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deps.RequestTimeout)
	defer cancel()

	rw := NewResponseWriter(w, r)
	if _, err := h.deps.Updater.Update(ctx, req.UserID); err != nil {
		switch {
		case errors.Is(err, embedding.ErrUnknownUser):
			rw.NotFound("user not found")
		case errors.Is(err, embedding.ErrInvalidUserID):
			rw.BadRequest(err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			rw.Timeout("embedding update timed out")
		default:
			rw.InternalError("failed to update embedding", err)
		}
		return
	}

	rw.OK(UpdateEmbeddingResponse{Status: "updated", UserID: req.UserID})
}

// BatchUpdate handles POST /batch-update.
//
// @Summary Run batch training
// @Description Runs one full training cycle synchronously. Returns 409 when a run is already in progress. A corpus too small to train reports updated_count 0.
// @Tags Embeddings
// @Produce json
// @Success 200 {object} BatchUpdateResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /batch-update [post]
func (h *Handler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	// The server's WriteTimeout is sized for ordinary requests; a run may
	// take up to TrainTimeout and its result still has to reach the client.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(h.deps.TrainTimeout + batchWriteGrace)); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Msg("cannot extend write deadline for batch update")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.deps.TrainTimeout)
	defer cancel()

	rw := NewResponseWriter(w, r)
	res, err := h.deps.Trainer.Train(ctx, embedding.TriggerManual)
	if err != nil {
		if errors.Is(err, embedding.ErrTrainingInProgress) {
			rw.Conflict(err.Error())
			return
		}
		rw.InternalError("batch training failed", err)
		return
	}

	logger := logging.Ctx(r.Context())
	logger.Info().Int("updated", res.UpdatedCount).Bool("skipped", res.Skipped).Msg("manual batch update finished")

	rw.OK(BatchUpdateResponse{
		UpdatedCount:    res.UpdatedCount,
		DurationSeconds: math.Round(res.Duration.Seconds()*100) / 100,
		ModelVersion:    res.ModelVersion,
		Skipped:         res.Skipped,
		Reason:          res.Reason,
	})
}
