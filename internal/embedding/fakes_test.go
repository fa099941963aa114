// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"
)

type fakeSignals struct {
	signals *RawSignals
	err     error
	block   chan struct{}
	entered chan struct{}
	calls   int
	mu      sync.Mutex
}

func (f *fakeSignals) LoadSignals(ctx context.Context, _ time.Time) (*RawSignals, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.signals == nil {
		return &RawSignals{BehaviorAvailable: true}, nil
	}
	return f.signals, nil
}

type fakeProfiles struct {
	profiles map[string]Profile
	tags     map[string][]Tag
	err      error
}

func (f *fakeProfiles) LoadProfiles(_ context.Context, ids []string) (map[string]Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]Profile)
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProfiles) LoadTags(_ context.Context, ids []string) (map[string][]Tag, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]Tag)
	for _, id := range ids {
		if t, ok := f.tags[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

// memStore is an exact-search VectorStore.
type memStore struct {
	mu          sync.Mutex
	rows        map[string]Embedding
	upsertErr   error
	nearestErr  error
	indexErr    error
	failAfter   int // rows written before a partial upsert fails
	indexCalls  int
	upsertCalls int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]Embedding)}
}

func (s *memStore) UpsertEmbeddings(_ context.Context, embs []Embedding) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	if s.failAfter > 0 && len(embs) > s.failAfter {
		for _, e := range embs[:s.failAfter] {
			s.rows[e.UserID] = e
		}
		return s.failAfter, errStoreDown
	}
	for _, e := range embs {
		v := make([]float32, len(e.Vector))
		copy(v, e.Vector)
		e.Vector = v
		s.rows[e.UserID] = e
	}
	return len(embs), nil
}

func (s *memStore) GetEmbedding(_ context.Context, userID string) (*Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[userID]
	if !ok {
		return nil, ErrEmbeddingNotFound
	}
	v := make([]float32, len(e.Vector))
	copy(v, e.Vector)
	e.Vector = v
	return &e, nil
}

func (s *memStore) Nearest(_ context.Context, userID string, limit int) ([]Neighbor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nearestErr != nil {
		return nil, s.nearestErr
	}
	q, ok := s.rows[userID]
	if !ok {
		return []Neighbor{}, nil
	}
	var out []Neighbor
	for id, e := range s.rows {
		if id == userID {
			continue
		}
		out = append(out, Neighbor{UserID: id, Similarity: cosine(q.Vector, e.Vector)})
	}
	// NaN distances sort last, as in PostgreSQL.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Similarity, out[j].Similarity
		switch {
		case math.IsNaN(a) && math.IsNaN(b):
			return out[i].UserID < out[j].UserID
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case a != b:
			return a > b
		default:
			return out[i].UserID < out[j].UserID
		}
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) CountEmbeddings(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *memStore) LastUpdate(context.Context) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *time.Time
	for _, e := range s.rows {
		if last == nil || e.UpdatedAt.After(*last) {
			t := e.UpdatedAt
			last = &t
		}
	}
	return last, nil
}

func (s *memStore) EnsureIndex(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexCalls++
	return s.indexErr
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type memCache struct {
	mu         sync.Mutex
	entries    map[string][]Recommendation
	getErr     error
	setErr     error
	invalidErr error
	sets       int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]Recommendation)}
}

func (c *memCache) Get(_ context.Context, userID string) ([]Recommendation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	recs, ok := c.entries[userID]
	return recs, ok, nil
}

func (c *memCache) Set(_ context.Context, userID string, recs []Recommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[userID] = append([]Recommendation(nil), recs...)
	return nil
}

func (c *memCache) InvalidateAll(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidErr != nil {
		return 0, c.invalidErr
	}
	n := len(c.entries)
	c.entries = make(map[string][]Recommendation)
	return n, nil
}

var errStoreDown = errors.New("connection refused")

func swipe(src, dst, action string) SwipeEvent {
	return SwipeEvent{SourceID: src, TargetID: dst, Action: action, At: time.Now()}
}
