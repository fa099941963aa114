// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/tomtom215/affinity/internal/embedding"
)

const upsertColumns = 4

const (
	getEmbeddingQuery = `
SELECT user_id, embedding, model_version, updated_at
FROM user_embeddings
WHERE user_id = $1`

	nearestQuery = `
SELECT user_id, 1 - (embedding <=> $1) AS similarity
FROM user_embeddings
WHERE user_id <> $2
ORDER BY embedding <=> $1
LIMIT $3`
)

// UpsertEmbeddings writes rows in chunks, one transaction per chunk. Later
// duplicates of a user id win.
func (s *Store) UpsertEmbeddings(ctx context.Context, embeddings []embedding.Embedding) (written int, err error) {
	rows := dedupeEmbeddings(embeddings)
	if len(rows) == 0 {
		return 0, nil
	}
	defer func(start time.Time) { observe("upsert_embeddings", start, err) }(time.Now())

	for _, chunk := range chunkEmbeddings(rows, s.cfg.UpsertChunkSize) {
		if err = s.upsertChunk(ctx, chunk); err != nil {
			return written, err
		}
		written += len(chunk)
	}
	return written, nil
}

func (s *Store) upsertChunk(ctx context.Context, chunk []embedding.Embedding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := make([]any, 0, len(chunk)*upsertColumns)
	for i := range chunk {
		e := &chunk[i]
		if len(e.Vector) != embedding.Dim {
			return fmt.Errorf("embedding for %s has %d dimensions, want %d", e.UserID, len(e.Vector), embedding.Dim)
		}
		updatedAt := e.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}
		args = append(args, e.UserID, pgvector.NewVector(e.Vector), e.ModelVersion, updatedAt)
	}

	if _, err := tx.ExecContext(ctx, upsertStatement(len(chunk)), args...); err != nil {
		return fmt.Errorf("failed to upsert embeddings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// upsertStatement builds a multi-row INSERT ... ON CONFLICT for n rows.
func upsertStatement(n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO user_embeddings (user_id, embedding, model_version, updated_at) VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		p := i * upsertColumns
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d)", p+1, p+2, p+3, p+4)
	}
	b.WriteString(" ON CONFLICT (user_id) DO UPDATE SET" +
		" embedding = EXCLUDED.embedding," +
		" model_version = EXCLUDED.model_version," +
		" updated_at = EXCLUDED.updated_at")
	return b.String()
}

// dedupeEmbeddings keeps the last row per user id, preserving the order of
// first appearance. A single INSERT ... ON CONFLICT cannot touch a row twice.
func dedupeEmbeddings(in []embedding.Embedding) []embedding.Embedding {
	pos := make(map[string]int, len(in))
	out := make([]embedding.Embedding, 0, len(in))
	for i := range in {
		if j, ok := pos[in[i].UserID]; ok {
			out[j] = in[i]
			continue
		}
		pos[in[i].UserID] = len(out)
		out = append(out, in[i])
	}
	return out
}

func chunkEmbeddings(in []embedding.Embedding, size int) [][]embedding.Embedding {
	if size <= 0 {
		size = len(in)
	}
	var out [][]embedding.Embedding
	for start := 0; start < len(in); start += size {
		end := start + size
		if end > len(in) {
			end = len(in)
		}
		out = append(out, in[start:end])
	}
	return out
}

// GetEmbedding returns embedding.ErrEmbeddingNotFound when userID has no row.
func (s *Store) GetEmbedding(ctx context.Context, userID string) (_ *embedding.Embedding, err error) {
	defer func(start time.Time) {
		if errors.Is(err, embedding.ErrEmbeddingNotFound) {
			observe("get_embedding", start, nil)
			return
		}
		observe("get_embedding", start, err)
	}(time.Now())

	var (
		e   embedding.Embedding
		vec pgvector.Vector
	)
	err = s.db.QueryRowContext(ctx, getEmbeddingQuery, userID).Scan(&e.UserID, &vec, &e.ModelVersion, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, embedding.ErrEmbeddingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	e.Vector = vec.Slice()
	return &e, nil
}

// Nearest returns up to limit neighbours of userID by cosine distance.
// Similarity is NaN for pairs involving a zero vector; such rows sort last.
func (s *Store) Nearest(ctx context.Context, userID string, limit int) ([]embedding.Neighbor, error) {
	if limit <= 0 {
		return []embedding.Neighbor{}, nil
	}

	target, err := s.GetEmbedding(ctx, userID)
	if errors.Is(err, embedding.ErrEmbeddingNotFound) {
		return []embedding.Neighbor{}, nil
	}
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := s.nearestTo(ctx, target, limit)
	observe("nearest", start, err)
	return out, err
}

func (s *Store) nearestTo(ctx context.Context, target *embedding.Embedding, limit int) ([]embedding.Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, nearestQuery, pgvector.NewVector(target.Vector), target.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest neighbours: %w", err)
	}
	defer rows.Close()

	out := make([]embedding.Neighbor, 0, limit)
	for rows.Next() {
		var n embedding.Neighbor
		if err := rows.Scan(&n.UserID, &n.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan neighbour: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate neighbours: %w", err)
	}
	return out, nil
}

// CountEmbeddings returns the number of stored rows.
func (s *Store) CountEmbeddings(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe("count_embeddings", start, err) }(time.Now())

	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}

// LastUpdate returns the newest updated_at, or nil for an empty table.
func (s *Store) LastUpdate(ctx context.Context) (_ *time.Time, err error) {
	defer func(start time.Time) { observe("last_update", start, err) }(time.Now())

	var ts sql.NullTime
	if err = s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM user_embeddings`).Scan(&ts); err != nil {
		return nil, fmt.Errorf("failed to read last update: %w", err)
	}
	return nullTime(ts), nil
}
