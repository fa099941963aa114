// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"sort"
)

// SignalWeights maps swipe actions and behaviour event types to their
// contribution to the interaction graph.
var SignalWeights = map[string]float64{
	"like":         1.0,
	"super_like":   2.0,
	"pass":         -0.3,
	"view_detail":  0.3,
	"view_photo":   0.2,
	"dwell_card":   0.1,
	"dwell_detail": 0.4,
}

// DefaultBehaviorWeight applies to behaviour event types missing from
// SignalWeights.
const DefaultBehaviorWeight = 0.1

// SwipeWeight returns the weight of a swipe action, 0 for unmapped actions.
func SwipeWeight(action string) float64 {
	return SignalWeights[action]
}

// BehaviorWeight returns the type weight scaled by the event's own weight.
func BehaviorWeight(eventType string, supplied float64) float64 {
	w, ok := SignalWeights[eventType]
	if !ok {
		w = DefaultBehaviorWeight
	}
	return w * supplied
}

// InteractionMatrix is the square user-user weight matrix for one training
// window. Row and column i both refer to Users[i].
type InteractionMatrix struct {
	Users  []string
	Matrix *SparseMatrix
	index  map[string]int
}

// Len is the number of users in the index.
func (im *InteractionMatrix) Len() int { return len(im.Users) }

// Index returns the position of userID.
func (im *InteractionMatrix) Index(userID string) (int, bool) {
	i, ok := im.index[userID]
	return i, ok
}

type edge struct {
	src, dst string
	weight   float64
}

// BuildInteractionMatrix turns raw events into the interaction graph. Events
// with zero weight are dropped and do not register their users; duplicate
// (source, target) pairs are summed. Users are registered per event, so a
// pair whose weights cancel still indexes both users with an empty row.
// Users are ordered lexicographically.
func BuildInteractionMatrix(signals *RawSignals) *InteractionMatrix {
	var edges []edge
	seen := make(map[string]struct{})

	add := func(src, dst string, w float64) {
		if w == 0 || src == "" || dst == "" {
			return
		}
		seen[src] = struct{}{}
		seen[dst] = struct{}{}
		edges = append(edges, edge{src: src, dst: dst, weight: w})
	}

	if signals != nil {
		for _, s := range signals.Swipes {
			add(s.SourceID, s.TargetID, SwipeWeight(s.Action))
		}
		for _, b := range signals.Behavior {
			add(b.SourceID, b.TargetID, BehaviorWeight(b.EventType, b.Weight))
		}
	}

	users := make([]string, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	sort.Strings(users)

	index := make(map[string]int, len(users))
	for i, u := range users {
		index[u] = i
	}

	triplets := make([]Triplet, len(edges))
	for i, e := range edges {
		triplets[i] = Triplet{Row: index[e.src], Col: index[e.dst], Value: e.weight}
	}

	return &InteractionMatrix{
		Users:  users,
		Matrix: NewSparseMatrix(len(users), len(users), triplets),
		index:  index,
	}
}
