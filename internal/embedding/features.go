// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"
)

// Explicit vector layout.
const (
	slotSugarDaddy   = 0
	slotSugarBaby    = 1
	slotAge          = 2
	slotVerified     = 3
	slotAccountAge   = 4
	tagBlockStart    = 8
	tagSlotsPerGroup = 10
	slotTagCount     = 48
)

// TagCategories fixes the order of the four tag blocks. Unknown categories
// fall into the first block.
var TagCategories = []string{"lifestyle", "interests", "expectations", "personality"}

var tagCategoryIndex = func() map[string]int {
	m := make(map[string]int, len(TagCategories))
	for i, c := range TagCategories {
		m[c] = i
	}
	return m
}()

// TagSlot returns the explicit-vector position of a tag.
func TagSlot(category, name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return tagBlockStart + tagCategoryIndex[category]*tagSlotsPerGroup + int(h.Sum32()%tagSlotsPerGroup)
}

// Encoded is the result of one encoder call.
type Encoded struct {
	// Vectors has an entry for every requested id.
	Vectors map[string][]float64
	// Known holds the ids that had a profile row.
	Known map[string]bool
}

// Encoder builds explicit feature vectors from profile state.
type Encoder struct {
	profiles ProfileSource
	now      func() time.Time
}

// NewEncoder creates an encoder reading from profiles.
func NewEncoder(profiles ProfileSource) *Encoder {
	return &Encoder{profiles: profiles, now: time.Now}
}

// Encode fetches profiles and tags for userIDs in two batched reads and
// returns one ExplicitDim vector per id. Missing profiles and tags yield
// zero blocks.
func (e *Encoder) Encode(ctx context.Context, userIDs []string) (*Encoded, error) {
	out := &Encoded{
		Vectors: make(map[string][]float64, len(userIDs)),
		Known:   make(map[string]bool, len(userIDs)),
	}
	if len(userIDs) == 0 {
		return out, nil
	}

	profiles, err := e.profiles.LoadProfiles(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	tags, err := e.profiles.LoadTags(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}

	now := e.now()
	for _, id := range userIDs {
		p, ok := profiles[id]
		if ok {
			out.Known[id] = true
		}
		out.Vectors[id] = encodeUser(p, ok, tags[id], now)
	}
	return out, nil
}

func encodeUser(p Profile, hasProfile bool, tags []Tag, now time.Time) []float64 {
	vec := make([]float64, ExplicitDim)

	if hasProfile {
		switch p.UserType {
		case "sugar_daddy":
			vec[slotSugarDaddy] = 1
		case "sugar_baby":
			vec[slotSugarBaby] = 1
		}
		if p.BirthDate != nil {
			years := float64(wholeDays(now.Sub(*p.BirthDate))) / 365.25
			vec[slotAge] = clamp01(years / 80)
		}
		if p.VerificationStatus == "verified" {
			vec[slotVerified] = 1
		}
		if p.CreatedAt != nil {
			vec[slotAccountAge] = clamp01(float64(wholeDays(now.Sub(*p.CreatedAt))) / 365)
		}
	}

	for _, t := range tags {
		vec[TagSlot(t.Category, t.Name)] = 1
	}
	vec[slotTagCount] = clamp01(float64(len(tags)) / 20)

	return vec
}

func wholeDays(d time.Duration) int64 {
	return int64(d / (24 * time.Hour))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
