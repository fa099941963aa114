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

// ConsumerRunner is one event consumer instance. *consumer.Consumer
// satisfies it. A runner is used for a single Run; the service builds a new
// one after every failure.
type ConsumerRunner interface {
	Run(ctx context.Context) error
	Close() error
}

// ConsumerServiceConfig holds configuration for the consumer service.
type ConsumerServiceConfig struct {
	// Prepare runs before each start, e.g. to provision the JetStream
	// stream. Optional.
	Prepare func(ctx context.Context) error

	// Build returns a fresh consumer.
	Build func() (ConsumerRunner, error)

	// PrepareTimeout bounds Prepare. Default: 30s
	PrepareTimeout time.Duration
}

// ConsumerService keeps the event consumer running under suture.
type ConsumerService struct {
	config ConsumerServiceConfig
	logger zerolog.Logger
	name   string
}

// NewConsumerService creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewConsumerService(cfg ConsumerServiceConfig, logger zerolog.Logger) *ConsumerService {
	if cfg.PrepareTimeout <= 0 {
		cfg.PrepareTimeout = 30 * time.Second
	}
	return &ConsumerService{
		config: cfg,
		logger: logger.With().Str("service", "event-consumer").Logger(),
		name:   "event-consumer",
	}
}

// Serve implements suture.Service. Prepare and Build failures are returned
// so suture retries with backoff, which covers a broker that is still
// starting.
func (s *ConsumerService) Serve(ctx context.Context) error {
	if s.config.Prepare != nil {
		prepCtx, cancel := context.WithTimeout(ctx, s.config.PrepareTimeout)
		err := s.config.Prepare(prepCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("prepare consumer: %w", err)
		}
	}

	runner, err := s.config.Build()
	if err != nil {
		return fmt.Errorf("build consumer: %w", err)
	}

	runErr := runner.Run(ctx)
	if err := runner.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("consumer close")
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if runErr != nil {
		return fmt.Errorf("consumer stopped: %w", runErr)
	}
	return errors.New("consumer stopped without error")
}

func (s *ConsumerService) String() string {
	return s.name
}
