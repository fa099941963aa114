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

	"github.com/lib/pq"

	"github.com/tomtom215/affinity/internal/embedding"
)

const (
	profilesQuery = `
SELECT id::text, "userType"::text, "birthDate", "verificationStatus"::text, "createdAt"
FROM users
WHERE id = ANY($1)`

	tagsQuery = `
SELECT uit."userId"::text, it.category::text, it.name
FROM user_interest_tags uit
JOIN interest_tags it ON uit."tagId" = it.id
WHERE uit."userId" = ANY($1)`
)

// LoadProfiles returns profile rows keyed by user id. Ids without a row are
// absent from the map.
func (s *Store) LoadProfiles(ctx context.Context, userIDs []string) (_ map[string]embedding.Profile, err error) {
	out := make(map[string]embedding.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	defer func(start time.Time) { observe("load_profiles", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, profilesQuery, pq.Array(userIDs))
	if isInvalidText(err) {
		s.logger.Debug().Strs("user_ids", userIDs).Msg("user ids do not parse as the users key type")
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                     string
			userType, verification sql.NullString
			birthDate, createdAt   sql.NullTime
		)
		if err = rows.Scan(&id, &userType, &birthDate, &verification, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out[id] = embedding.Profile{
			UserType:           userType.String,
			BirthDate:          nullTime(birthDate),
			VerificationStatus: verification.String,
			CreatedAt:          nullTime(createdAt),
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return out, nil
}

// LoadTags returns tag assignments keyed by user id.
func (s *Store) LoadTags(ctx context.Context, userIDs []string) (_ map[string][]embedding.Tag, err error) {
	out := make(map[string][]embedding.Tag)
	if len(userIDs) == 0 {
		return out, nil
	}
	defer func(start time.Time) { observe("load_tags", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, tagsQuery, pq.Array(userIDs))
	if isInvalidText(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       string
			category sql.NullString
			name     string
		)
		if err = rows.Scan(&id, &category, &name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		out[id] = append(out[id], embedding.Tag{Category: category.String, Name: name})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return out, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
