// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// EmbeddedServer is the lifecycle of an in-process NATS server.
// *consumer.EmbeddedServer satisfies it.
type EmbeddedServer interface {
	ClientURL() string
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// EmbeddedNATSService starts an embedded NATS server on every Serve and
// shuts it down on cancellation. A server that stops on its own is reported
// as a failure so suture starts a fresh one.
type EmbeddedNATSService struct {
	start           func() (EmbeddedServer, error)
	shutdownTimeout time.Duration
	healthInterval  time.Duration
	logger          zerolog.Logger
	name            string
}

// NewEmbeddedNATSService wraps start, which must return a running server.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEmbeddedNATSService(start func() (EmbeddedServer, error), shutdownTimeout time.Duration, logger zerolog.Logger) *EmbeddedNATSService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EmbeddedNATSService{
		start:           start,
		shutdownTimeout: shutdownTimeout,
		healthInterval:  5 * time.Second,
		logger:          logger.With().Str("service", "nats-server").Logger(),
		name:            "nats-server",
	}
}

// Serve implements suture.Service.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	srv, err := s.start()
	if err != nil {
		return fmt.Errorf("start embedded nats: %w", err)
	}
	s.logger.Info().Str("url", srv.ClientURL()).Msg("embedded NATS server running")

	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Warn().Err(err).Msg("embedded NATS shutdown incomplete")
			}
			return ctx.Err()

		case <-ticker.C:
			if !srv.IsRunning() {
				return errors.New("embedded nats server stopped unexpectedly")
			}
		}
	}
}

func (s *EmbeddedNATSService) String() string {
	return s.name
}
