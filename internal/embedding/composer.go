// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// unitTolerance is how far from 1 a norm may be before normalize rescales.
// It is wider than float32 rounding so vectors read back from storage are
// recognised as already normalised.
const unitTolerance = 1e-6

// Composer concatenates latent and explicit blocks into stored embeddings.
type Composer struct {
	store        VectorStore
	modelVersion string
	now          func() time.Time
}

// NewComposer creates a composer writing to store.
func NewComposer(store VectorStore, modelVersion string) *Composer {
	if modelVersion == "" {
		modelVersion = DefaultModelVersion
	}
	return &Composer{store: store, modelVersion: modelVersion, now: time.Now}
}

// ModelVersion is the tag written on every embedding.
func (c *Composer) ModelVersion() string { return c.modelVersion }

// Compose builds one embedding per user in users. latent[i] belongs to
// users[i]; a user missing from explicit gets a zero explicit block.
func (c *Composer) Compose(users []string, latent [][]float64, explicit map[string][]float64) []Embedding {
	now := c.now().UTC()
	out := make([]Embedding, 0, len(users))
	for i, id := range users {
		var l []float64
		if i < len(latent) {
			l = latent[i]
		}
		out = append(out, Embedding{
			UserID:       id,
			Vector:       ComposeVector(l, explicit[id]),
			ModelVersion: c.modelVersion,
			UpdatedAt:    now,
		})
	}
	return out
}

// Persist upserts embeddings and makes sure the ANN index exists once the
// table has rows. The count is the number of rows written even when an error
// is returned; an index failure is reported as ErrIndexUnavailable.
func (c *Composer) Persist(ctx context.Context, embeddings []Embedding) (int, error) {
	if len(embeddings) == 0 {
		return 0, nil
	}
	n, err := c.store.UpsertEmbeddings(ctx, embeddings)
	if err != nil {
		return n, fmt.Errorf("upsert embeddings: %w", err)
	}
	if err := c.store.EnsureIndex(ctx); err != nil {
		return n, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	return n, nil
}

// ComposeVector concatenates latent and explicit (each padded or truncated
// to its block width) and L2-normalises the result.
func ComposeVector(latent, explicit []float64) []float32 {
	v := make([]float64, Dim)
	copy(v[:LatentDim], latent)
	copy(v[LatentDim:], explicit)
	return normalize(v)
}

// normalize returns v/|v| as float32. A zero vector stays zero and a vector
// already within unitTolerance of unit length is converted unchanged.
func normalize(v []float64) []float32 {
	out := make([]float32, len(v))
	norm := floats.Norm(v, 2)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return out
	}
	scale := 1.0
	if math.Abs(norm-1) > unitTolerance {
		scale = 1 / norm
	}
	for i, x := range v {
		out[i] = float32(x * scale)
	}
	return out
}

// Norm returns the L2 norm of a stored vector.
func Norm(v []float32) float64 {
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
