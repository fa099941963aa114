// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/affinity/internal/embedding"
)

const (
	embeddingsTable = "user_embeddings"
	embeddingsIndex = "user_embeddings_embedding_idx"
	behaviorTable   = "public.user_behavior_events"
)

func schemaStatements() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	user_id       TEXT PRIMARY KEY,
	embedding     vector(%d) NOT NULL,
	model_version TEXT NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`, embeddingsTable, embedding.Dim),
	}
}

// EnsureSchema creates the pgvector extension and the embeddings table if
// they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) (err error) {
	defer func(start time.Time) { observe("ensure_schema", start, err) }(time.Now())

	for _, stmt := range schemaStatements() {
		if _, err = s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.logger.Debug().Msg("schema ensured")
	return nil
}

// DetectCapabilities checks once whether the behaviour events table exists.
// Later calls are no-ops.
func (s *Store) DetectCapabilities(ctx context.Context) error {
	var detectErr error
	s.detectOnce.Do(func() {
		var reg sql.NullString
		if err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, behaviorTable).Scan(&reg); err != nil {
			detectErr = fmt.Errorf("failed to check %s: %w", behaviorTable, err)
			return
		}
		s.behaviorAvailable.Store(reg.Valid)
		if !reg.Valid {
			s.logger.Warn().Str("table", behaviorTable).Msg("behavior events table missing, training will use swipes only")
		}
	})
	return detectErr
}

// EnsureIndex creates the cosine ANN index once the table has rows.
func (s *Store) EnsureIndex(ctx context.Context) (err error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if s.indexReady {
		return nil
	}
	defer func(start time.Time) { observe("ensure_index", start, err) }(time.Now())

	count, err := s.CountEmbeddings(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	stmt := indexStatement(s.cfg.IndexMethod, count)
	if _, err = s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	s.indexReady = true
	s.logger.Info().Str("method", s.cfg.IndexMethod).Int64("rows", count).Msg("vector index ready")
	return nil
}

// indexStatement builds the CREATE INDEX for method. IVFFlat list count
// follows the pgvector guidance of rows/1000, bounded to [1, 1000].
func indexStatement(method string, rows int64) string {
	if method == IndexIVFFlat {
		lists := rows / 1000
		if lists < 1 {
			lists = 1
		}
		if lists > 1000 {
			lists = 1000
		}
		return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`,
			embeddingsIndex, embeddingsTable, lists)
	}
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
		embeddingsIndex, embeddingsTable)
}
