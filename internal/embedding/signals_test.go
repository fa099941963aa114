// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSignalWeights(t *testing.T) {
	tests := []struct {
		action string
		want   float64
	}{
		{"like", 1.0},
		{"super_like", 2.0},
		{"pass", -0.3},
		{"view_detail", 0.3},
		{"view_photo", 0.2},
		{"dwell_card", 0.1},
		{"dwell_detail", 0.4},
		{"block", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			assert.Equal(t, tt.want, SwipeWeight(tt.action))
		})
	}

	assert.InDelta(t, 0.6, BehaviorWeight("view_detail", 2), 1e-12)
	assert.InDelta(t, 0.05, BehaviorWeight("profile_share", 0.5), 1e-12, "unknown types use the default weight")
	assert.Equal(t, 0.0, BehaviorWeight("like", 0))
}

func TestBuildInteractionMatrix(t *testing.T) {
	signals := &RawSignals{
		Swipes: []SwipeEvent{
			swipe("carol", "alice", "like"),
			swipe("alice", "bob", "like"),
			swipe("alice", "bob", "super_like"),
			swipe("alice", "dave", "block"),
			swipe("bob", "carol", "like"),
		},
		Behavior: []BehaviorEvent{
			{SourceID: "bob", TargetID: "carol", EventType: "view_photo", Weight: -5},
			{SourceID: "erin", TargetID: "alice", EventType: "view_photo", Weight: 0},
		},
		BehaviorAvailable: true,
	}

	im := BuildInteractionMatrix(signals)

	require.Equal(t, []string{"alice", "bob", "carol"}, im.Users, "zero-weight events do not register users")

	alice, _ := im.Index("alice")
	bob, _ := im.Index("bob")
	carol, _ := im.Index("carol")
	_, ok := im.Index("dave")
	assert.False(t, ok)

	assert.InDelta(t, 3.0, im.Matrix.At(alice, bob), 1e-12, "duplicate pairs are summed")
	assert.InDelta(t, 1.0, im.Matrix.At(carol, alice), 1e-12)
	assert.Equal(t, 0.0, im.Matrix.At(bob, carol), "like and a negative view_photo cancel out")
	assert.Equal(t, 2, im.Matrix.NNZ(), "zero sums are not materialised")
}

func TestBuildInteractionMatrixCancelledPairKeepsUsers(t *testing.T) {
	im := BuildInteractionMatrix(&RawSignals{
		Swipes: []SwipeEvent{swipe("x", "y", "like")},
		Behavior: []BehaviorEvent{
			{SourceID: "x", TargetID: "y", EventType: "view_photo", Weight: -5},
		},
		BehaviorAvailable: true,
	})

	assert.Equal(t, []string{"x", "y"}, im.Users)
	assert.Equal(t, 0, im.Matrix.NNZ(), "the cancelled pair is not materialised")
}

func TestBuildInteractionMatrixEmpty(t *testing.T) {
	im := BuildInteractionMatrix(&RawSignals{})
	assert.Equal(t, 0, im.Len())
	r, c := im.Matrix.Dims()
	assert.Equal(t, 0, r)
	assert.Equal(t, 0, c)

	assert.Equal(t, 0, BuildInteractionMatrix(nil).Len())
}

func TestSparseMatrixProducts(t *testing.T) {
	entries := []Triplet{
		{Row: 0, Col: 1, Value: 2},
		{Row: 1, Col: 0, Value: -1},
		{Row: 2, Col: 2, Value: 0.5},
		{Row: 2, Col: 0, Value: 3},
	}
	sp := NewSparseMatrix(3, 3, entries)
	dense := mat.DenseCopyOf(sp)

	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	var want mat.Dense
	want.Mul(dense, x)
	assert.True(t, mat.EqualApprox(&want, sp.MulDense(x), 1e-12))

	var wantT mat.Dense
	wantT.Mul(dense.T(), x)
	assert.True(t, mat.EqualApprox(&wantT, sp.TMulDense(x), 1e-12))

	assert.Equal(t, 3.0, sp.At(2, 0))
	assert.Equal(t, 0.0, sp.At(0, 0))
	assert.Panics(t, func() { sp.At(3, 0) })
}
