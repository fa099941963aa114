// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/embedding"
)

// Trainer runs one batch cycle. *embedding.Trainer satisfies it.
type Trainer interface {
	Train(ctx context.Context, trigger string) (*embedding.TrainResult, error)
}

// EmbeddingCounter reports how many embeddings are stored.
type EmbeddingCounter interface {
	CountEmbeddings(ctx context.Context) (int64, error)
}

// TrainingSchedulerConfig holds configuration for the training scheduler.
type TrainingSchedulerConfig struct {
	// TrainHour is the UTC hour of the daily run (0-23).
	TrainHour int

	// Timeout bounds each run.
	Timeout time.Duration

	// BootstrapOnEmpty trains once at start when no embeddings exist.
	BootstrapOnEmpty bool
}

// TrainingSchedulerService triggers batch training daily at TrainHour UTC.
//
// Runs execute in their own goroutine on a context detached from the
// service context: stopping the service never cancels a run in progress.
// Overlap is prevented by the trainer itself.
type TrainingSchedulerService struct {
	trainer Trainer
	counter EmbeddingCounter
	config  TrainingSchedulerConfig
	logger  zerolog.Logger
	name    string

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	inflight sync.WaitGroup
}

// NewTrainingSchedulerService creates the scheduler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainingSchedulerService(trainer Trainer, counter EmbeddingCounter, cfg TrainingSchedulerConfig, logger zerolog.Logger) *TrainingSchedulerService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	cfg.TrainHour = ((cfg.TrainHour % 24) + 24) % 24

	return &TrainingSchedulerService{
		trainer: trainer,
		counter: counter,
		config:  cfg,
		logger:  logger.With().Str("service", "training-scheduler").Logger(),
		name:    "training-scheduler",
		now:     time.Now,
		after:   time.After,
	}
}

// NextRun returns the first occurrence of hour:00 UTC strictly after now.
func NextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Serve implements suture.Service.
func (s *TrainingSchedulerService) Serve(ctx context.Context) error {
	if s.config.BootstrapOnEmpty {
		if err := s.bootstrap(ctx); err != nil {
			return err
		}
	}

	for {
		next := NextRun(s.now(), s.config.TrainHour)
		s.logger.Info().Time("next_run", next).Msg("training scheduled")

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("training scheduler stopping")
			return ctx.Err()
		case <-s.after(next.Sub(s.now())):
			s.launch(ctx, embedding.TriggerSchedule)
		}
	}
}

func (s *TrainingSchedulerService) bootstrap(ctx context.Context) error {
	count, err := s.counter.CountEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("count embeddings: %w", err)
	}
	if count > 0 {
		return nil
	}
	s.logger.Info().Msg("no embeddings stored, starting bootstrap training")
	s.launch(ctx, embedding.TriggerBootstrap)
	return nil
}

func (s *TrainingSchedulerService) launch(parent context.Context, trigger string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.config.Timeout)
		defer cancel()

		res, err := s.trainer.Train(ctx, trigger)
		switch {
		case errors.Is(err, embedding.ErrTrainingInProgress):
			s.logger.Info().Str("trigger", trigger).Msg("training already running, skipping")
		case err != nil:
			s.logger.Error().Err(err).Str("trigger", trigger).Msg("scheduled training failed")
		default:
			s.logger.Debug().Str("trigger", trigger).Int("updated", res.UpdatedCount).Msg("scheduled training finished")
		}
	}()
}

// WaitIdle waits up to timeout for runs started by this service and
// reports whether they all finished.
func (s *TrainingSchedulerService) WaitIdle(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *TrainingSchedulerService) String() string {
	return s.name
}
