// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

//go:build integration

package testinfra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq" // postgres driver
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostgresImage ships PostgreSQL 16 with the vector extension.
	DefaultPostgresImage = "pgvector/pgvector:pg16"

	DefaultPostgresPort = "5432"

	postgresUser     = "affinity"
	postgresPassword = "affinity"
	postgresDB       = "affinity_test"
)

// PostgresContainer is a running pgvector-enabled PostgreSQL.
type PostgresContainer struct {
	testcontainers.Container
	DSN string
}

// PostgresOption configures the container.
type PostgresOption func(*postgresConfig)

type postgresConfig struct {
	image         string
	startTimeout  time.Duration
	fixtures      bool
	behaviorTable bool
}

// WithPostgresImage overrides DefaultPostgresImage.
func WithPostgresImage(image string) PostgresOption {
	return func(c *postgresConfig) {
		c.image = image
	}
}

// WithStartTimeout bounds how long to wait for the server to accept
// connections.
func WithStartTimeout(timeout time.Duration) PostgresOption {
	return func(c *postgresConfig) {
		c.startTimeout = timeout
	}
}

// WithFixtureSchema creates the matching service's source tables.
func WithFixtureSchema() PostgresOption {
	return func(c *postgresConfig) {
		c.fixtures = true
	}
}

// WithoutBehaviorTable omits user_behavior_events from the fixture schema.
func WithoutBehaviorTable() PostgresOption {
	return func(c *postgresConfig) {
		c.behaviorTable = false
	}
}

// NewPostgresContainer starts PostgreSQL and waits until it accepts
// connections.
func NewPostgresContainer(ctx context.Context, opts ...PostgresOption) (*PostgresContainer, error) {
	cfg := &postgresConfig{
		image:         DefaultPostgresImage,
		startTimeout:  90 * time.Second,
		behaviorTable: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	port := nat.Port(DefaultPostgresPort + "/tcp")
	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{string(port)},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(port),
			wait.ForSQL(port, "postgres", func(host string, p nat.Port) string {
				return dsn(host, p.Port())
			}),
		).WithStartupTimeout(cfg.startTimeout),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		c.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		c.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	pg := &PostgresContainer{Container: c, DSN: dsn(host, mapped.Port())}

	if cfg.fixtures {
		if err := applyFixtures(ctx, pg.DSN, cfg.behaviorTable); err != nil {
			c.Terminate(ctx) //nolint:errcheck
			return nil, fmt.Errorf("apply fixture schema: %w", err)
		}
	}
	return pg, nil
}

func dsn(host, port string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, host, port, postgresDB)
}

var fixtureStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id                   UUID PRIMARY KEY,
	"userType"           TEXT,
	"birthDate"          DATE,
	"verificationStatus" TEXT,
	"createdAt"          TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS interest_tags (
	id       UUID PRIMARY KEY,
	category TEXT,
	name     TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS user_interest_tags (
	"userId" UUID NOT NULL REFERENCES users(id),
	"tagId"  UUID NOT NULL REFERENCES interest_tags(id)
)`,
	`CREATE TABLE IF NOT EXISTS swipes (
	"swiperId"  UUID NOT NULL,
	"swipedId"  UUID NOT NULL,
	action      TEXT NOT NULL,
	"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
}

const behaviorFixture = `CREATE TABLE IF NOT EXISTS user_behavior_events (
	"userId"       UUID NOT NULL,
	"targetUserId" UUID,
	"eventType"    TEXT NOT NULL,
	metadata       JSONB,
	"createdAt"    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func applyFixtures(ctx context.Context, dsn string, behavior bool) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	stmts := fixtureStatements
	if behavior {
		stmts = append(stmts[:len(stmts):len(stmts)], behaviorFixture)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
