// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"context"
	"errors"
	"time"
)

// Vector widths. Every persisted embedding has exactly Dim components.
const (
	LatentDim   = 64
	ExplicitDim = 64
	Dim         = LatentDim + ExplicitDim
)

// DefaultModelVersion tags embeddings produced by this composition scheme.
const DefaultModelVersion = "v1.0"

var (
	// ErrUnknownUser means the user has neither a profile nor a stored embedding.
	ErrUnknownUser = errors.New("unknown user")

	// ErrTrainingInProgress is returned when a batch run is already in flight.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrInvalidUserID rejects empty user ids.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrEmbeddingNotFound is returned by VectorStore.GetEmbedding.
	ErrEmbeddingNotFound = errors.New("embedding not found")

	// ErrIndexUnavailable wraps a failed ANN index build. Rows written before
	// it are still valid; queries fall back to a sequential scan.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)

// Embedding is one persisted row.
type Embedding struct {
	UserID       string
	Vector       []float32
	ModelVersion string
	UpdatedAt    time.Time
}

// Neighbor is a nearest-neighbour hit with its raw cosine similarity. The
// similarity is NaN when either vector is all zeros.
type Neighbor struct {
	UserID     string
	Similarity float64
}

// Recommendation is a ranked candidate with a display score in [0,1].
type Recommendation struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

// SwipeEvent is a discrete swipe action.
type SwipeEvent struct {
	SourceID string
	TargetID string
	Action   string
	At       time.Time
}

// BehaviorEvent is a weighted behavioural signal.
type BehaviorEvent struct {
	SourceID  string
	TargetID  string
	EventType string
	Weight    float64
	At        time.Time
}

// RawSignals is everything read for one training window. BehaviorAvailable
// is false when the behaviour source is missing and only swipes were read.
type RawSignals struct {
	Swipes            []SwipeEvent
	Behavior          []BehaviorEvent
	BehaviorAvailable bool
}

// Profile holds the attributes the encoder reads from a user row.
type Profile struct {
	UserType           string
	BirthDate          *time.Time
	VerificationStatus string
	CreatedAt          *time.Time
}

// Tag is one interest tag attached to a user.
type Tag struct {
	Category string
	Name     string
}

// SignalSource reads interaction events newer than since.
type SignalSource interface {
	LoadSignals(ctx context.Context, since time.Time) (*RawSignals, error)
}

// ProfileSource reads profile attributes and tags in batches. Ids without a
// row are absent from the returned maps.
type ProfileSource interface {
	LoadProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error)
	LoadTags(ctx context.Context, userIDs []string) (map[string][]Tag, error)
}

// VectorStore persists embeddings and answers cosine nearest-neighbour
// queries.
type VectorStore interface {
	// UpsertEmbeddings inserts or replaces rows keyed by user id and returns
	// the number written.
	UpsertEmbeddings(ctx context.Context, embeddings []Embedding) (int, error)

	// GetEmbedding returns ErrEmbeddingNotFound when no row exists.
	GetEmbedding(ctx context.Context, userID string) (*Embedding, error)

	// Nearest returns up to limit users ordered by ascending cosine distance
	// to userID's embedding, excluding userID itself. It returns an empty
	// slice when userID has no embedding.
	Nearest(ctx context.Context, userID string, limit int) ([]Neighbor, error)

	CountEmbeddings(ctx context.Context) (int64, error)

	// LastUpdate returns the newest updated_at, or nil when the table is empty.
	LastUpdate(ctx context.Context) (*time.Time, error)

	// EnsureIndex creates the ANN index if it does not exist yet.
	EnsureIndex(ctx context.Context) error
}

// RecommendationCache stores ranked candidate lists per user. Implementations
// may fail; callers treat errors as a miss.
type RecommendationCache interface {
	Get(ctx context.Context, userID string) ([]Recommendation, bool, error)
	Set(ctx context.Context, userID string, recs []Recommendation) error
	InvalidateAll(ctx context.Context) (int, error)
}
