// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/tomtom215/affinity/internal/metrics"
)

// Updater refreshes the explicit block of single users between batch runs.
type Updater struct {
	encoder  *Encoder
	store    VectorStore
	composer *Composer
	logger   zerolog.Logger
}

// NewUpdater creates an updater.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewUpdater(encoder *Encoder, store VectorStore, composer *Composer, logger zerolog.Logger) *Updater {
	return &Updater{
		encoder:  encoder,
		store:    store,
		composer: composer,
		logger:   logger.With().Str("component", "updater").Logger(),
	}
}

// Update re-encodes userID's profile and rewrites its embedding, keeping the
// stored latent block. It returns ErrUnknownUser when the user has neither a
// profile nor an embedding.
func (u *Updater) Update(ctx context.Context, userID string) (*Embedding, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	enc, err := u.encoder.Encode(ctx, []string{userID})
	if err != nil {
		return nil, err
	}

	stored, err := u.store.GetEmbedding(ctx, userID)
	switch {
	case errors.Is(err, ErrEmbeddingNotFound):
		stored = nil
	case err != nil:
		return nil, fmt.Errorf("read embedding: %w", err)
	}

	if stored == nil && !enc.Known[userID] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	latent := make([]float64, LatentDim)
	if stored != nil {
		for i := 0; i < LatentDim && i < len(stored.Vector); i++ {
			latent[i] = float64(stored.Vector[i])
		}
	}

	emb := Embedding{
		UserID:       userID,
		Vector:       RefreshVector(latent, enc.Vectors[userID]),
		ModelVersion: u.composer.ModelVersion(),
		UpdatedAt:    u.composer.now().UTC(),
	}
	if stored != nil && slices.Equal(stored.Vector, emb.Vector) {
		u.logger.Debug().
			Str("user_id", userID).
			Bool("explicit_signal", floats.Norm(enc.Vectors[userID], 2) > 0).
			Float64("latent_norm", floats.Norm(latent, 2)).
			Msg("embedding refresh left the vector unchanged")
	}
	if _, err := u.store.UpsertEmbeddings(ctx, []Embedding{emb}); err != nil {
		return nil, fmt.Errorf("upsert embedding: %w", err)
	}
	metrics.RecordIncrementalUpdate()
	return &emb, nil
}

// UpdateMany updates each distinct non-empty id in order and returns how
// many were written. Unknown users are skipped; any other error stops the
// batch.
func (u *Updater) UpdateMany(ctx context.Context, userIDs []string) (int, error) {
	updated := 0
	for _, id := range Dedupe(userIDs) {
		if _, err := u.Update(ctx, id); err != nil {
			if errors.Is(err, ErrUnknownUser) {
				u.logger.Debug().Str("user_id", id).Msg("skipping update for unknown user")
				continue
			}
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// RefreshVector combines a stored latent block with a new explicit block.
// The latent block is kept exactly and the explicit block is scaled into the
// norm left over, so the result is unit length whenever latent came from a
// unit vector. With no explicit signal, or no norm left, the explicit block
// is zero and the result is normalised as usual.
func RefreshVector(latent, explicit []float64) []float32 {
	v := make([]float64, Dim)
	copy(v[:LatentDim], latent)

	e := make([]float64, ExplicitDim)
	copy(e, explicit)

	eNorm := floats.Norm(e, 2)
	aNorm := floats.Norm(v[:LatentDim], 2)
	budget := 1 - aNorm*aNorm

	if eNorm > 0 && budget > unitTolerance {
		floats.Scale(math.Sqrt(budget)/eNorm, e)
		copy(v[LatentDim:], e)
	}
	return normalize(v)
}

// Dedupe drops empty and repeated ids, keeping first occurrence order.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
