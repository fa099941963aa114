// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	m, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T is not a metric", o)
	}
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return pb.GetHistogram().GetSampleCount()
}

func TestRecordTrainingRun(t *testing.T) {
	successBefore := testutil.ToFloat64(TrainingRuns.WithLabelValues(OutcomeSuccess))
	skippedBefore := testutil.ToFloat64(TrainingRuns.WithLabelValues(OutcomeSkipped))
	batchBefore := testutil.ToFloat64(EmbeddingsUpdated.WithLabelValues(SourceBatch))
	observedBefore := histogramCount(t, TrainingDuration)

	RecordTrainingRun(OutcomeSuccess, 2*time.Second, 40, 38)
	RecordTrainingRun(OutcomeSkipped, 0, 3, 0)

	if got := testutil.ToFloat64(TrainingRuns.WithLabelValues(OutcomeSuccess)) - successBefore; got != 1 {
		t.Errorf("success runs delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(TrainingRuns.WithLabelValues(OutcomeSkipped)) - skippedBefore; got != 1 {
		t.Errorf("skipped runs delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(EmbeddingsUpdated.WithLabelValues(SourceBatch)) - batchBefore; got != 38 {
		t.Errorf("batch embeddings delta = %v, want 38", got)
	}
	if got := testutil.ToFloat64(TrainingActiveUsers); got != 40 {
		t.Errorf("active users = %v, want 40", got)
	}
	if got := histogramCount(t, TrainingDuration) - observedBefore; got != 1 {
		t.Errorf("duration observations delta = %d, want 1 (skipped runs are not observed)", got)
	}
}

func TestRecordStoreQuery(t *testing.T) {
	before := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("nearest"))

	RecordStoreQuery("nearest", 3*time.Millisecond, nil)
	RecordStoreQuery("nearest", 3*time.Millisecond, errors.New("connection refused"))

	if got := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("nearest")) - before; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestRecordCounters(t *testing.T) {
	hits := testutil.ToFloat64(RecommendationCache.WithLabelValues(CacheHit))
	keys := testutil.ToFloat64(CacheInvalidatedKeys)
	malformed := testutil.ToFloat64(ConsumerMessages.WithLabelValues("matching.swipe", MessageMalformed))
	incremental := testutil.ToFloat64(EmbeddingsUpdated.WithLabelValues(SourceIncremental))

	RecordCacheLookup(CacheHit)
	RecordCacheInvalidation(250)
	RecordConsumerMessage("matching.swipe", MessageMalformed)
	RecordIncrementalUpdate()

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"cache hits", testutil.ToFloat64(RecommendationCache.WithLabelValues(CacheHit)) - hits, 1},
		{"invalidated keys", testutil.ToFloat64(CacheInvalidatedKeys) - keys, 250},
		{"malformed", testutil.ToFloat64(ConsumerMessages.WithLabelValues("matching.swipe", MessageMalformed)) - malformed, 1},
		{"incremental", testutil.ToFloat64(EmbeddingsUpdated.WithLabelValues(SourceIncremental)) - incremental, 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s delta = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v, want %v", got, before)
	}
}

func TestRecordRecommendation(t *testing.T) {
	before := histogramCount(t, RecommendationDuration.WithLabelValues("direct"))
	RecordRecommendation(false, 5*time.Millisecond)
	if got := histogramCount(t, RecommendationDuration.WithLabelValues("direct")) - before; got != 1 {
		t.Errorf("direct observations delta = %d, want 1", got)
	}
}
