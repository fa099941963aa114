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
	swipesQuery = `
SELECT "swiperId", "swipedId", action, "createdAt"
FROM swipes
WHERE "createdAt" > $1`

	behaviorQuery = `
SELECT "userId", "targetUserId", "eventType",
       COALESCE((metadata->>'weight')::float, 1.0) AS weight,
       "createdAt"
FROM user_behavior_events
WHERE "createdAt" > $1
  AND "targetUserId" IS NOT NULL`

	behaviorSavepoint = "behavior_read"
)

// LoadSignals reads swipes and, when available, behaviour events newer than
// since. Both reads share one read-only transaction.
func (s *Store) LoadSignals(ctx context.Context, since time.Time) (_ *embedding.RawSignals, err error) {
	defer func(start time.Time) { observe("load_signals", start, err) }(time.Now())

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin signal read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	swipes, err := readSwipes(ctx, tx, since)
	if err != nil {
		return nil, err
	}
	out := &embedding.RawSignals{Swipes: swipes}

	if s.behaviorAvailable.Load() {
		behavior, berr := s.readBehavior(ctx, tx, since)
		if berr != nil {
			return nil, berr
		}
		out.Behavior = behavior
		out.BehaviorAvailable = s.behaviorAvailable.Load()
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit signal read: %w", err)
	}

	s.logger.Debug().
		Int("swipes", len(out.Swipes)).
		Int("behavior_events", len(out.Behavior)).
		Bool("behavior_available", out.BehaviorAvailable).
		Msg("signals loaded")
	return out, nil
}

func readSwipes(ctx context.Context, tx *sql.Tx, since time.Time) ([]embedding.SwipeEvent, error) {
	rows, err := tx.QueryContext(ctx, swipesQuery, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query swipes: %w", err)
	}
	defer rows.Close()

	var out []embedding.SwipeEvent
	for rows.Next() {
		var ev embedding.SwipeEvent
		if err := rows.Scan(&ev.SourceID, &ev.TargetID, &ev.Action, &ev.At); err != nil {
			return nil, fmt.Errorf("failed to scan swipe: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate swipes: %w", err)
	}
	return out, nil
}

// readBehavior runs under a savepoint. If the table has gone away the
// savepoint is rolled back so the transaction stays usable, and the
// capability flag is cleared for the rest of the process.
func (s *Store) readBehavior(ctx context.Context, tx *sql.Tx, since time.Time) ([]embedding.BehaviorEvent, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+behaviorSavepoint); err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}

	events, err := queryBehavior(ctx, tx, since)
	if err == nil {
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+behaviorSavepoint); err != nil {
			return nil, fmt.Errorf("failed to release savepoint: %w", err)
		}
		return events, nil
	}
	if !isUndefinedTable(err) {
		return nil, err
	}

	if _, rerr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+behaviorSavepoint); rerr != nil {
		return nil, fmt.Errorf("failed to roll back savepoint: %w", rerr)
	}
	s.behaviorAvailable.Store(false)
	s.logger.Warn().Err(err).Msg("behavior events table unavailable, continuing with swipes only")
	return nil, nil
}

func queryBehavior(ctx context.Context, tx *sql.Tx, since time.Time) ([]embedding.BehaviorEvent, error) {
	rows, err := tx.QueryContext(ctx, behaviorQuery, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query behavior events: %w", err)
	}
	defer rows.Close()

	var out []embedding.BehaviorEvent
	for rows.Next() {
		var ev embedding.BehaviorEvent
		if err := rows.Scan(&ev.SourceID, &ev.TargetID, &ev.EventType, &ev.Weight, &ev.At); err != nil {
			return nil, fmt.Errorf("failed to scan behavior event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate behavior events: %w", err)
	}
	return out, nil
}
