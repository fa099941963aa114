// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package cache stores per-user recommendation lists between batch runs.

Entries live under key_prefix + user id as a JSON array of
{user_id, score}. A batch run that writes embeddings deletes every entry
under the prefix; no other path invalidates.

# Backends

	redis   shared across replicas (go-redis, SCAN + chunked DEL)
	badger  local disk or memory, native per-key TTL
	memory  bounded in-process LRU, for single-instance and tests

# Failure Handling

Backend calls go through a circuit breaker. While it is open, Get reports a
miss and Set is skipped, so a dead cache costs one trial request per timeout
window instead of one per request. Invalidation bypasses the breaker: a batch run
always tries to clear stale lists.

The package also provides LRU, a generic TTL-bounded map that the event
consumer uses to drop redelivered messages.
*/
package cache
