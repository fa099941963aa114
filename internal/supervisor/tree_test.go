// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// stubService runs until cancelled, optionally failing its first N starts.
type stubService struct {
	name     string
	failures int32
	starts   atomic.Int32
	started  chan struct{}
}

func newStubService(name string, failures int32) *stubService {
	return &stubService{name: name, failures: failures, started: make(chan struct{}, 16)}
}

func (s *stubService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	select {
	case s.started <- struct{}{}:
	default:
	}
	if n <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubService) String() string { return s.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitStarted(t *testing.T, s *stubService) {
	t.Helper()
	select {
	case <-s.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s was not started", s.name)
	}
}

func TestNewSupervisorTreeDefaults(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor should not be nil")
	}

	want := DefaultTreeConfig()
	if tree.config != want {
		t.Errorf("config = %+v, want %+v", tree.config, want)
	}
}

func TestSupervisorTreeStartsEveryLayer(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureBackoff:  50 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	data := newStubService("training-scheduler", 0)
	messaging := newStubService("event-consumer", 0)
	api := newStubService("http-server", 0)
	tree.AddDataService(data)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitStarted(t, data)
	waitStarted(t, messaging)
	waitStarted(t, api)

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatal(err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestSupervisorTreeRestartsFailedService(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	flaky := newStubService("event-consumer", 2)
	steady := newStubService("http-server", 0)
	tree.AddMessagingService(flaky)
	tree.AddAPIService(steady)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(3 * time.Second)
	for flaky.starts.Load() < 3 {
		select {
		case <-flaky.started:
		case <-deadline:
			t.Fatalf("flaky service started %d times, want 3", flaky.starts.Load())
		}
	}

	if got := steady.starts.Load(); got != 1 {
		t.Errorf("api layer restarted: %d starts", got)
	}

	cancel()
	<-errCh
}

func TestNewSupervisorTreeRequiresLogger(t *testing.T) {
	if _, err := NewSupervisorTree(nil, TreeConfig{}); err == nil {
		t.Fatal("expected error for nil logger")
	}
}

func TestTreeConfigMessagingBackoff(t *testing.T) {
	tests := []struct {
		name string
		in   TreeConfig
		want time.Duration
	}{
		{"default", TreeConfig{}, 30 * time.Second},
		{"follows a longer failure backoff", TreeConfig{FailureBackoff: time.Minute}, time.Minute},
		{"explicit", TreeConfig{MessagingBackoff: 5 * time.Second}, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.in
			cfg.applyDefaults()
			if cfg.MessagingBackoff != tt.want {
				t.Errorf("MessagingBackoff = %v, want %v", cfg.MessagingBackoff, tt.want)
			}
		})
	}
}

// stubbornService ignores cancellation until released.
type stubbornService struct {
	started chan struct{}
	release chan struct{}
}

func (s *stubbornService) Serve(context.Context) error {
	close(s.started)
	<-s.release
	return nil
}

func (s *stubbornService) String() string { return "stubborn" }

func TestSupervisorTreeRun(t *testing.T) {
	t.Run("clean stop", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
		if err != nil {
			t.Fatal(err)
		}
		svc := newStubService("http-server", 0)
		tree.AddAPIService(svc)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			waitStarted(t, svc)
			cancel()
		}()

		unstopped, err := tree.Run(ctx)
		if err != nil {
			t.Errorf("Run err = %v, want nil on cancellation", err)
		}
		if len(unstopped) != 0 {
			t.Errorf("unstopped = %v", unstopped)
		}
	})

	t.Run("reports services that outlive the timeout", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: 50 * time.Millisecond})
		if err != nil {
			t.Fatal(err)
		}
		svc := &stubbornService{started: make(chan struct{}), release: make(chan struct{})}
		defer close(svc.release)
		tree.AddDataService(svc)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-svc.started
			cancel()
		}()

		unstopped, _ := tree.Run(ctx)
		if len(unstopped) != 1 || unstopped[0] != "stubborn" {
			t.Errorf("unstopped = %v, want [stubborn]", unstopped)
		}
	})
}
