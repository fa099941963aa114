// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomMatrix(n, edges int, seed int64) *InteractionMatrix {
	rng := rand.New(rand.NewSource(seed))
	actions := []string{"like", "super_like", "pass", "view_detail"}
	var swipes []SwipeEvent
	for i := 0; i < edges; i++ {
		src := rng.Intn(n)
		dst := rng.Intn(n)
		if src == dst {
			continue
		}
		swipes = append(swipes, swipe(fmt.Sprintf("user-%03d", src), fmt.Sprintf("user-%03d", dst), actions[rng.Intn(len(actions))]))
	}
	return BuildInteractionMatrix(&RawSignals{Swipes: swipes})
}

func TestRank(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 0}, {1, 0}, {2, 0}, {3, 2}, {10, 9}, {65, 64}, {1000, 64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rank(tt.n), "n=%d", tt.n)
	}
}

func TestFactorizeInsufficient(t *testing.T) {
	im := BuildInteractionMatrix(&RawSignals{Swipes: []SwipeEvent{swipe("a", "b", "like")}})
	f, err := NewSolver(DefaultSolverConfig()).Factorize(context.Background(), im)
	require.NoError(t, err)
	assert.True(t, f.Insufficient())
	assert.Empty(t, f.Vectors)
}

func TestFactorizeWidthAndPadding(t *testing.T) {
	for _, n := range []int{3, 12, 80} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			im := randomMatrix(n, n*6, int64(n))
			f, err := NewSolver(DefaultSolverConfig()).Factorize(context.Background(), im)
			require.NoError(t, err)
			require.Equal(t, Rank(im.Len()), f.Rank)
			require.Len(t, f.Vectors, im.Len())
			for _, v := range f.Vectors {
				require.Len(t, v, LatentDim)
				for j := f.Rank; j < LatentDim; j++ {
					assert.Equal(t, 0.0, v[j], "padding column %d", j)
				}
			}
		})
	}
}

// With the rank covering the whole row space, X·Xᵀ equals A·Aᵀ. user-f
// never swipes, so A has a zero row and rank at most n-1.
func TestFactorizePreservesGram(t *testing.T) {
	im := BuildInteractionMatrix(&RawSignals{Swipes: []SwipeEvent{
		swipe("user-a", "user-b", "like"),
		swipe("user-a", "user-f", "super_like"),
		swipe("user-b", "user-c", "pass"),
		swipe("user-b", "user-a", "like"),
		swipe("user-c", "user-d", "view_detail"),
		swipe("user-c", "user-f", "like"),
		swipe("user-d", "user-e", "like"),
		swipe("user-e", "user-a", "pass"),
		swipe("user-e", "user-f", "super_like"),
	}})
	n := im.Len()
	require.Equal(t, 6, n)

	f, err := NewSolver(DefaultSolverConfig()).Factorize(context.Background(), im)
	require.NoError(t, err)
	require.Equal(t, 5, f.Rank)

	a := mat.DenseCopyOf(im.Matrix)
	var want mat.Dense
	want.Mul(a, a.T())

	x := mat.NewDense(n, LatentDim, nil)
	for i, v := range f.Vectors {
		x.SetRow(i, v)
	}
	var got mat.Dense
	got.Mul(x, x.T())

	assert.True(t, mat.EqualApprox(&want, &got, 1e-9))
}

func TestFactorizeSingularValuesMatchExact(t *testing.T) {
	im := randomMatrix(40, 200, 3)
	f, err := NewSolver(DefaultSolverConfig()).Factorize(context.Background(), im)
	require.NoError(t, err)

	var exact mat.SVD
	require.True(t, exact.Factorize(mat.DenseCopyOf(im.Matrix), mat.SVDNone))
	want := exact.Values(nil)

	for j := 0; j < 3; j++ {
		norm := 0.0
		for _, v := range f.Vectors {
			norm += v[j] * v[j]
		}
		assert.InDelta(t, want[j], math.Sqrt(norm), 1e-6*want[0], "component %d", j)
	}
}

func TestFactorizeDeterministicAndSigned(t *testing.T) {
	im := randomMatrix(30, 150, 11)
	s := NewSolver(DefaultSolverConfig())

	first, err := s.Factorize(context.Background(), im)
	require.NoError(t, err)
	second, err := s.Factorize(context.Background(), im)
	require.NoError(t, err)
	assert.Equal(t, first.Vectors, second.Vectors)

	for j := 0; j < first.Rank; j++ {
		best := 0.0
		for _, v := range first.Vectors {
			if math.Abs(v[j]) > math.Abs(best) {
				best = v[j]
			}
		}
		assert.GreaterOrEqual(t, best, 0.0, "component %d", j)
	}
}

func TestFactorizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSolver(DefaultSolverConfig()).Factorize(ctx, randomMatrix(10, 40, 1))
	assert.ErrorIs(t, err, context.Canceled)
}
