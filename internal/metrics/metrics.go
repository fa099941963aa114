// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Training outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
	OutcomeConflict = "conflict"
)

// Embedding update sources.
const (
	SourceBatch       = "batch"
	SourceIncremental = "incremental"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Consumer message outcomes.
const (
	MessageProcessed = "processed"
	MessageMalformed = "malformed"
	MessageFailed    = "failed"
	MessageDuplicate = "duplicate"
)

var (
	// Training
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_training_runs_total",
			Help: "Batch training runs by outcome",
		},
		[]string{"outcome"},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affinity_training_duration_seconds",
			Help:    "Duration of completed batch training runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	TrainingActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_training_active_users",
			Help: "Users in the interaction index of the last training run",
		},
	)

	EmbeddingsUpdated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_embeddings_updated_total",
			Help: "Embeddings written, by source",
		},
		[]string{"source"},
	)

	// Serving
	RecommendationCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_recommendation_cache_total",
			Help: "Recommendation cache lookups by result",
		},
		[]string{"result"},
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_recommendation_duration_seconds",
			Help:    "Recommendation latency by path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	CacheInvalidatedKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_cache_invalidated_keys_total",
			Help: "Recommendation cache entries removed by invalidation",
		},
	)

	CacheBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_cache_breaker_state",
			Help: "Cache circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Store
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_store_query_duration_seconds",
			Help:    "Duration of vector store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_store_query_errors_total",
			Help: "Failed vector store operations",
		},
		[]string{"operation"},
	)

	// Consumer
	ConsumerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_consumer_messages_total",
			Help: "Event messages handled by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)
)

// RecordTrainingRun records the outcome of a batch run. Duration and user
// counts are only observed for runs that got past ingestion.
func RecordTrainingRun(outcome string, duration time.Duration, users, updated int) {
	TrainingRuns.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSuccess {
		return
	}
	TrainingDuration.Observe(duration.Seconds())
	TrainingActiveUsers.Set(float64(users))
	EmbeddingsUpdated.WithLabelValues(SourceBatch).Add(float64(updated))
}

// RecordIncrementalUpdate counts one incremental embedding write.
func RecordIncrementalUpdate() {
	EmbeddingsUpdated.WithLabelValues(SourceIncremental).Inc()
}

// RecordCacheLookup counts a recommendation cache lookup.
func RecordCacheLookup(result string) {
	RecommendationCache.WithLabelValues(result).Inc()
}

// RecordRecommendation observes serving latency. cached is true when the
// request was allowed to use the cache.
func RecordRecommendation(cached bool, duration time.Duration) {
	path := "direct"
	if cached {
		path = "cached"
	}
	RecommendationDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordCacheInvalidation counts removed cache keys.
func RecordCacheInvalidation(keys int) {
	CacheInvalidatedKeys.Add(float64(keys))
}

// RecordCacheBreakerState sets the breaker gauge.
func RecordCacheBreakerState(state float64) {
	CacheBreakerState.Set(state)
}

// RecordStoreQuery records a vector store operation.
func RecordStoreQuery(operation string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordConsumerMessage counts one handled event.
func RecordConsumerMessage(topic, outcome string) {
	ConsumerMessages.WithLabelValues(topic, outcome).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
