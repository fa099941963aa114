// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package metrics holds the Prometheus collectors for the service.

Collectors are registered with the default registry through promauto and are
exposed by the API at /metrics:

	curl http://localhost:8090/metrics

# Available Metrics

Training:
  - affinity_training_runs_total{outcome}: success, skipped, failed, conflict
  - affinity_training_duration_seconds: wall time of completed runs
  - affinity_training_active_users: users in the last training index
  - affinity_embeddings_updated_total{source}: batch or incremental

Serving:
  - affinity_recommendation_cache_total{result}: hit, miss, error
  - affinity_recommendation_duration_seconds{path}: cached or direct
  - affinity_cache_invalidated_keys_total
  - affinity_cache_breaker_state: 0 closed, 1 half-open, 2 open

Storage and events:
  - affinity_store_query_duration_seconds{operation}
  - affinity_store_query_errors_total{operation}
  - affinity_consumer_messages_total{topic,outcome}: processed, malformed, failed, duplicate

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests

Callers use the Record* helpers rather than touching collectors directly.
*/
package metrics
