// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Triplet is one (row, col, value) entry used to assemble a SparseMatrix.
type Triplet struct {
	Row, Col int
	Value    float64
}

// SparseMatrix is a compressed sparse row matrix. It satisfies mat.Matrix so
// it can be inspected with gonum helpers, but products go through MulDense
// and TMulDense which only touch stored entries.
type SparseMatrix struct {
	rows, cols int
	rowPtr     []int
	colIdx     []int
	values     []float64
}

var _ mat.Matrix = (*SparseMatrix)(nil)

// NewSparseMatrix sums duplicate coordinates and drops entries whose sum is
// exactly zero.
func NewSparseMatrix(rows, cols int, entries []Triplet) *SparseMatrix {
	sorted := make([]Triplet, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})

	m := &SparseMatrix{
		rows:   rows,
		cols:   cols,
		rowPtr: make([]int, rows+1),
	}

	for i := 0; i < len(sorted); {
		t := sorted[i]
		sum := 0.0
		for i < len(sorted) && sorted[i].Row == t.Row && sorted[i].Col == t.Col {
			sum += sorted[i].Value
			i++
		}
		if sum == 0 {
			continue
		}
		m.colIdx = append(m.colIdx, t.Col)
		m.values = append(m.values, sum)
		m.rowPtr[t.Row+1]++
	}
	for r := 0; r < rows; r++ {
		m.rowPtr[r+1] += m.rowPtr[r]
	}
	return m
}

// Dims returns the matrix shape.
func (m *SparseMatrix) Dims() (r, c int) { return m.rows, m.cols }

// At returns the element at (i, j).
func (m *SparseMatrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	k := lo + sort.SearchInts(m.colIdx[lo:hi], j)
	if k < hi && m.colIdx[k] == j {
		return m.values[k]
	}
	return 0
}

// T returns the implicit transpose.
func (m *SparseMatrix) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// NNZ is the number of stored entries.
func (m *SparseMatrix) NNZ() int { return len(m.values) }

// MulDense returns m·x.
func (m *SparseMatrix) MulDense(x mat.Matrix) *mat.Dense {
	xr, xc := x.Dims()
	if xr != m.cols {
		panic(mat.ErrShape)
	}
	out := mat.NewDense(m.rows, xc, nil)
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			j, v := m.colIdx[k], m.values[k]
			for c := 0; c < xc; c++ {
				out.Set(i, c, out.At(i, c)+v*x.At(j, c))
			}
		}
	}
	return out
}

// TMulDense returns mᵀ·x.
func (m *SparseMatrix) TMulDense(x mat.Matrix) *mat.Dense {
	xr, xc := x.Dims()
	if xr != m.rows {
		panic(mat.ErrShape)
	}
	out := mat.NewDense(m.cols, xc, nil)
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			j, v := m.colIdx[k], m.values[k]
			for c := 0; c < xc; c++ {
				out.Set(j, c, out.At(j, c)+v*x.At(i, c))
			}
		}
	}
	return out
}
