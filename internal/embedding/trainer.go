// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/affinity/internal/metrics"
)

// Training triggers, recorded in RunStatus.
const (
	TriggerSchedule  = "schedule"
	TriggerBootstrap = "bootstrap"
	TriggerManual    = "manual"
)

// Skip reasons.
const (
	ReasonTooFewUsers      = "too few active users"
	ReasonInsufficientRank = "insufficient data for factorization"
)

// invalidateTimeout bounds the cache flush after rows were written.
const invalidateTimeout = 30 * time.Second

// TrainerConfig controls batch training.
type TrainerConfig struct {
	Window   time.Duration
	MinUsers int
}

// TrainResult summarises one batch run.
type TrainResult struct {
	UpdatedCount int
	Duration     time.Duration
	ModelVersion string
	Skipped      bool
	Reason       string
	ActiveUsers  int
}

// RunStatus describes the most recent batch run.
type RunStatus struct {
	Trigger      string     `json:"trigger"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	UpdatedCount int        `json:"updated_count"`
	Skipped      bool       `json:"skipped,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Trainer runs the full pipeline: ingest, factorize and encode, compose,
// persist, invalidate. At most one run is in flight.
type Trainer struct {
	cfg      TrainerConfig
	signals  SignalSource
	encoder  *Encoder
	solver   *Solver
	composer *Composer
	cache    RecommendationCache
	logger   zerolog.Logger
	now      func() time.Time

	running sync.Mutex

	statusMu sync.RWMutex
	last     *RunStatus
}

// NewTrainer wires a trainer. cache may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTrainer(cfg TrainerConfig, signals SignalSource, encoder *Encoder, solver *Solver,
	composer *Composer, cache RecommendationCache, logger zerolog.Logger) *Trainer {
	return &Trainer{
		cfg:      cfg,
		signals:  signals,
		encoder:  encoder,
		solver:   solver,
		composer: composer,
		cache:    cache,
		logger:   logger.With().Str("component", "trainer").Logger(),
		now:      time.Now,
	}
}

// ModelVersion is the tag written by this trainer.
func (t *Trainer) ModelVersion() string { return t.composer.ModelVersion() }

// Train runs one batch cycle. It returns ErrTrainingInProgress immediately
// if another run holds the lock. Too little data is reported as a skipped
// result, not an error.
func (t *Trainer) Train(ctx context.Context, trigger string) (*TrainResult, error) {
	if !t.running.TryLock() {
		metrics.RecordTrainingRun(metrics.OutcomeConflict, 0, 0, 0)
		return nil, ErrTrainingInProgress
	}
	defer t.running.Unlock()

	start := t.now()
	t.setStatus(RunStatus{Trigger: trigger, StartedAt: start.UTC()})
	t.logger.Info().Str("trigger", trigger).Msg("starting embedding training")

	res, err := t.run(ctx)
	if res == nil {
		res = &TrainResult{ModelVersion: t.ModelVersion()}
	}
	res.Duration = t.now().Sub(start)

	t.finish(trigger, start, res, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (t *Trainer) run(ctx context.Context) (*TrainResult, error) {
	res := &TrainResult{ModelVersion: t.ModelVersion()}

	signals, err := t.signals.LoadSignals(ctx, t.now().Add(-t.cfg.Window))
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}
	if !signals.BehaviorAvailable {
		t.logger.Warn().Msg("behavior events unavailable, training on swipes only")
	}

	im := BuildInteractionMatrix(signals)
	res.ActiveUsers = im.Len()
	t.logger.Info().
		Int("users", im.Len()).
		Int("nnz", im.Matrix.NNZ()).
		Int("swipes", len(signals.Swipes)).
		Int("behavior_events", len(signals.Behavior)).
		Msg("interaction matrix built")

	if im.Len() < t.cfg.MinUsers {
		t.logger.Warn().Int("users", im.Len()).Int("min_users", t.cfg.MinUsers).Msg("not enough users for training")
		res.Skipped, res.Reason = true, ReasonTooFewUsers
		return res, nil
	}

	var (
		factors *Factors
		encoded *Encoded
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := t.solver.Factorize(gctx, im)
		if err != nil {
			return fmt.Errorf("factorize: %w", err)
		}
		factors = f
		return nil
	})
	g.Go(func() error {
		e, err := t.encoder.Encode(gctx, im.Users)
		if err != nil {
			return fmt.Errorf("encode features: %w", err)
		}
		encoded = e
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if factors.Insufficient() {
		t.logger.Warn().Int("users", im.Len()).Msg("not enough data for factorization")
		res.Skipped, res.Reason = true, ReasonInsufficientRank
		return res, nil
	}

	embeddings := t.composer.Compose(im.Users, factors.Vectors, encoded.Vectors)
	n, err := t.composer.Persist(ctx, embeddings)
	res.UpdatedCount = n

	// Any written row makes cached neighbour lists stale, even if the run
	// fails afterwards.
	if n > 0 {
		t.invalidateCache(ctx)
	}

	switch {
	case errors.Is(err, ErrIndexUnavailable):
		t.logger.Warn().Err(err).Int("updated", n).Msg("embeddings written without vector index")
	case err != nil:
		return res, err
	}
	return res, nil
}

func (t *Trainer) invalidateCache(ctx context.Context) {
	if t.cache == nil {
		return
	}
	// A cancelled run still has to clear entries for the rows it wrote.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	removed, err := t.cache.InvalidateAll(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("recommendation cache invalidation failed")
		return
	}
	metrics.RecordCacheInvalidation(removed)
	t.logger.Info().Int("keys", removed).Msg("recommendation cache invalidated")
}

func (t *Trainer) finish(trigger string, start time.Time, res *TrainResult, err error) {
	finished := t.now().UTC()
	status := RunStatus{
		Trigger:      trigger,
		StartedAt:    start.UTC(),
		FinishedAt:   &finished,
		UpdatedCount: res.UpdatedCount,
		Skipped:      res.Skipped,
	}

	switch {
	case err != nil:
		status.Error = err.Error()
		metrics.RecordTrainingRun(metrics.OutcomeFailed, res.Duration, res.ActiveUsers, 0)
		ev := t.logger.Error()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			ev = t.logger.Warn()
		}
		ev.Err(err).Str("trigger", trigger).Dur("duration", res.Duration).Msg("embedding training failed")
	case res.Skipped:
		metrics.RecordTrainingRun(metrics.OutcomeSkipped, res.Duration, res.ActiveUsers, 0)
		t.logger.Info().Str("reason", res.Reason).Msg("embedding training skipped")
	default:
		metrics.RecordTrainingRun(metrics.OutcomeSuccess, res.Duration, res.ActiveUsers, res.UpdatedCount)
		t.logger.Info().
			Int("updated", res.UpdatedCount).
			Dur("duration", res.Duration).
			Str("model_version", res.ModelVersion).
			Msg("embedding training complete")
	}

	t.setStatus(status)
}

func (t *Trainer) setStatus(s RunStatus) {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	t.last = &s
}

// LastRun returns the status of the latest run, or false if none started.
func (t *Trainer) LastRun() (RunStatus, bool) {
	t.statusMu.RLock()
	defer t.statusMu.RUnlock()
	if t.last == nil {
		return RunStatus{}, false
	}
	return *t.last, true
}
