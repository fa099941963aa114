// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeVector(t *testing.T) {
	tests := []struct {
		name     string
		latent   []float64
		explicit []float64
		zero     bool
	}{
		{"both blocks", []float64{3, 4}, []float64{1, 0, 2}, false},
		{"latent only", []float64{0.1, -0.2, 0.3}, nil, false},
		{"explicit only", nil, []float64{0, 0, 1, 1}, false},
		{"short latent padded", []float64{5}, []float64{5}, false},
		{"all zero", make([]float64, LatentDim), make([]float64, ExplicitDim), true},
		{"nil", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ComposeVector(tt.latent, tt.explicit)
			require.Len(t, v, Dim)
			if tt.zero {
				for _, x := range v {
					require.Equal(t, float32(0), x)
				}
				return
			}
			assert.InDelta(t, 1.0, Norm(v), 1e-6)
		})
	}

	v := ComposeVector([]float64{3, 4}, nil)
	assert.InDelta(t, 0.6, v[0], 1e-7)
	assert.InDelta(t, 0.8, v[1], 1e-7)
}

func TestComposerCompose(t *testing.T) {
	c := NewComposer(newMemStore(), "")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return at }

	latent := [][]float64{{1, 0}, {0, 0}}
	explicit := map[string][]float64{"b": {0, 0, 2}}

	embs := c.Compose([]string{"a", "b"}, latent, explicit)
	require.Len(t, embs, 2)
	for _, e := range embs {
		assert.Equal(t, DefaultModelVersion, e.ModelVersion)
		assert.Equal(t, at, e.UpdatedAt)
		assert.Len(t, e.Vector, Dim)
		assert.InDelta(t, 1.0, Norm(e.Vector), 1e-6)
	}
	assert.Equal(t, float32(1), embs[0].Vector[0])
	assert.Equal(t, float32(1), embs[1].Vector[LatentDim+2])
}

func TestComposerPersist(t *testing.T) {
	store := newMemStore()
	c := NewComposer(store, "v9")

	n, err := c.Persist(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, store.indexCalls, "index is only ensured after rows exist")

	embs := c.Compose([]string{"a"}, [][]float64{{1}}, nil)
	n, err = c.Persist(context.Background(), embs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.indexCalls)

	again, err := c.Persist(context.Background(), embs)
	require.NoError(t, err)
	assert.Equal(t, 1, again)
	count, _ := store.CountEmbeddings(context.Background())
	assert.Equal(t, int64(1), count, "upsert never duplicates rows")

	store.indexErr = errStoreDown
	n, err = c.Persist(context.Background(), embs)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, 1, n, "rows written before the index failure are counted")

	store.indexErr = nil
	store.upsertErr = errStoreDown
	_, err = c.Persist(context.Background(), embs)
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, ErrIndexUnavailable)
}
