// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/embedding"
)

type trainCall struct {
	trigger string
	ctx     context.Context
}

type blockingTrainer struct {
	calls   chan trainCall
	release chan struct{}
	err     error
}

func newBlockingTrainer(blocking bool) *blockingTrainer {
	tr := &blockingTrainer{calls: make(chan trainCall, 8), release: make(chan struct{})}
	if !blocking {
		close(tr.release)
	}
	return tr
}

func (b *blockingTrainer) Train(ctx context.Context, trigger string) (*embedding.TrainResult, error) {
	b.calls <- trainCall{trigger: trigger, ctx: ctx}
	<-b.release
	if b.err != nil {
		return nil, b.err
	}
	return &embedding.TrainResult{UpdatedCount: 1}, nil
}

type staticCounter struct {
	count int64
	err   error
}

func (c staticCounter) CountEmbeddings(context.Context) (int64, error) { return c.count, c.err }

func waitCall(t *testing.T, tr *blockingTrainer) trainCall {
	t.Helper()
	select {
	case c := <-tr.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("trainer was not called")
		return trainCall{}
	}
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{"later today", time.Date(2026, 5, 1, 1, 30, 0, 0, time.UTC), 3, time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)},
		{"exactly on the hour", time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC), 3, time.Date(2026, 5, 2, 3, 0, 0, 0, time.UTC)},
		{"already passed", time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC), 3, time.Date(2026, 5, 2, 3, 0, 0, 0, time.UTC)},
		{"month rollover", time.Date(2026, 5, 31, 4, 0, 0, 0, time.UTC), 3, time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)},
		{"non-UTC input", time.Date(2026, 5, 1, 1, 0, 0, 0, time.FixedZone("CEST", 2*3600)), 3, time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextRun(tt.now, tt.hour); !got.Equal(tt.want) {
				t.Errorf("NextRun = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrainingSchedulerBootstrap(t *testing.T) {
	tests := []struct {
		name      string
		bootstrap bool
		count     int64
		wantRun   bool
	}{
		{"empty table", true, 0, true},
		{"populated table", true, 12, false},
		{"bootstrap disabled", false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newBlockingTrainer(false)
			svc := NewTrainingSchedulerService(tr, staticCounter{count: tt.count},
				TrainingSchedulerConfig{TrainHour: 3, BootstrapOnEmpty: tt.bootstrap}, zerolog.Nop())
			svc.after = func(time.Duration) <-chan time.Time { return nil }

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			if tt.wantRun {
				if c := waitCall(t, tr); c.trigger != embedding.TriggerBootstrap {
					t.Errorf("trigger = %q, want bootstrap", c.trigger)
				}
			} else {
				select {
				case c := <-tr.calls:
					t.Errorf("unexpected %s run", c.trigger)
				case <-time.After(50 * time.Millisecond):
				}
			}

			cancel()
			<-errCh
			if !svc.WaitIdle(time.Second) {
				t.Error("runs still in flight")
			}
		})
	}
}

func TestTrainingSchedulerBootstrapCountError(t *testing.T) {
	svc := NewTrainingSchedulerService(newBlockingTrainer(false), staticCounter{err: errors.New("db down")},
		TrainingSchedulerConfig{BootstrapOnEmpty: true}, zerolog.Nop())

	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("expected count failure to stop the service")
	}
}

func TestTrainingSchedulerFiresAtTrainHour(t *testing.T) {
	now := time.Date(2026, 5, 1, 1, 30, 0, 0, time.UTC)
	tr := newBlockingTrainer(false)
	svc := NewTrainingSchedulerService(tr, staticCounter{count: 1},
		TrainingSchedulerConfig{TrainHour: 3}, zerolog.Nop())
	svc.now = func() time.Time { return now }

	waits := make(chan time.Duration, 4)
	fire := make(chan time.Time)
	svc.after = func(d time.Duration) <-chan time.Time {
		waits <- d
		return fire
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	if d := <-waits; d != 90*time.Minute {
		t.Errorf("first wait = %v, want 1h30m", d)
	}
	fire <- now

	if c := waitCall(t, tr); c.trigger != embedding.TriggerSchedule {
		t.Errorf("trigger = %q, want schedule", c.trigger)
	}
	<-waits // rescheduled

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve err = %v", err)
	}
}

func TestTrainingSchedulerShutdownKeepsRunAlive(t *testing.T) {
	tr := newBlockingTrainer(true)
	svc := NewTrainingSchedulerService(tr, staticCounter{count: 0},
		TrainingSchedulerConfig{BootstrapOnEmpty: true, Timeout: time.Minute}, zerolog.Nop())
	svc.after = func(time.Duration) <-chan time.Time { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	call := waitCall(t, tr)
	cancel()

	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("Serve blocked on the in-flight run")
	}
	if err := call.ctx.Err(); err != nil {
		t.Errorf("run context cancelled by shutdown: %v", err)
	}
	if _, ok := call.ctx.Deadline(); !ok {
		t.Error("run context has no timeout")
	}
	if svc.WaitIdle(20 * time.Millisecond) {
		t.Error("WaitIdle reported idle while a run was blocked")
	}

	close(tr.release)
	if !svc.WaitIdle(time.Second) {
		t.Error("run did not finish after release")
	}
}
