// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package testinfra starts throwaway containers for integration tests.
//
// Everything here sits behind the integration build tag:
//
//	go test -tags integration ./internal/store/...
//
// StartPostgres skips the test on machines without a Docker daemon instead
// of failing it.
//
// # PostgreSQL with pgvector
//
//	pg := testinfra.StartPostgres(t, testinfra.WithFixtureSchema())
//
//	db, err := sql.Open("postgres", pg.DSN)
//
// WithFixtureSchema creates the matching service's tables (users, swipes,
// interest tags and, unless WithoutBehaviorTable is given, behaviour events)
// so the store's read paths can be exercised against real SQL.
package testinfra
