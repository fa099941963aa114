// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SolverConfig tunes the randomized truncated SVD.
type SolverConfig struct {
	Seed            int64
	Oversample      int
	PowerIterations int
}

// DefaultSolverConfig returns the production settings.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Seed:            42,
		Oversample:      10,
		PowerIterations: 5,
	}
}

// Factors holds one LatentDim vector per user, in interaction matrix order.
// Rank is the number of real components; the rest are zero padding. A Rank
// of zero means the corpus was too small to factorize.
type Factors struct {
	Rank    int
	Vectors [][]float64
}

// Insufficient reports whether factorization was skipped.
func (f *Factors) Insufficient() bool { return f.Rank == 0 }

// Solver factorizes interaction matrices into latent vectors.
type Solver struct {
	cfg SolverConfig
}

// NewSolver creates a solver.
func NewSolver(cfg SolverConfig) *Solver {
	if cfg.Oversample < 0 {
		cfg.Oversample = 0
	}
	if cfg.PowerIterations < 0 {
		cfg.PowerIterations = 0
	}
	return &Solver{cfg: cfg}
}

// Rank returns the component count for an n×n matrix: min(LatentDim, n-1).
func Rank(n int) int {
	k := n - 1
	if k > LatentDim {
		k = LatentDim
	}
	if k < 2 {
		return 0
	}
	return k
}

// Factorize returns U_k·Σ_k of the interaction matrix, zero-padded to
// LatentDim. Each component's sign is chosen so its largest-magnitude entry
// is positive.
func (s *Solver) Factorize(ctx context.Context, im *InteractionMatrix) (*Factors, error) {
	n := im.Len()
	k := Rank(n)
	if k == 0 {
		return &Factors{}, nil
	}

	a := im.Matrix
	l := k + s.cfg.Oversample
	if l > n {
		l = n
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed)) //nolint:gosec // deterministic projection, not security
	omega := mat.NewDense(n, l, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < l; j++ {
			omega.Set(i, j, rng.NormFloat64())
		}
	}

	q := a.MulDense(omega)
	orthonormalize(q)
	for i := 0; i < s.cfg.PowerIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		z := a.TMulDense(q)
		orthonormalize(z)
		q = a.MulDense(z)
		orthonormalize(q)
	}

	// B = Qᵀ·A, computed as (Aᵀ·Q)ᵀ.
	atq := a.TMulDense(q)
	var b mat.Dense
	b.CloneFrom(atq.T())

	var svd mat.SVD
	if ok := svd.Factorize(&b, mat.SVDThin); !ok {
		return nil, errors.New("svd factorization did not converge")
	}
	sigma := svd.Values(nil)
	var ub mat.Dense
	svd.UTo(&ub)

	var u mat.Dense
	u.Mul(q, &ub)

	vectors := make([][]float64, n)
	for i := range vectors {
		vectors[i] = make([]float64, LatentDim)
	}
	for j := 0; j < k && j < len(sigma); j++ {
		col := mat.Col(nil, j, &u)
		if col[floats.MaxIdx(absAll(col))] < 0 {
			floats.Scale(-1, col)
		}
		for i := 0; i < n; i++ {
			vectors[i][j] = col[i] * sigma[j]
		}
	}

	return &Factors{Rank: k, Vectors: vectors}, nil
}

// orthonormalize replaces the columns of m with an orthonormal basis using
// modified Gram-Schmidt. Columns that are numerically dependent on earlier
// ones become zero.
func orthonormalize(m *mat.Dense) {
	_, c := m.Dims()
	cols := make([][]float64, c)
	for j := 0; j < c; j++ {
		v := mat.Col(nil, j, m)
		before := floats.Norm(v, 2)
		for i := 0; i < j; i++ {
			floats.AddScaled(v, -floats.Dot(cols[i], v), cols[i])
		}
		norm := floats.Norm(v, 2)
		if norm == 0 || norm <= 1e-10*before {
			for i := range v {
				v[i] = 0
			}
		} else {
			floats.Scale(1/norm, v)
		}
		cols[j] = v
		m.SetCol(j, v)
	}
}

func absAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Abs(x)
	}
	return out
}
