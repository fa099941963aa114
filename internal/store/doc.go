// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package store is the PostgreSQL persistence layer.

It owns one table, user_embeddings, holding a pgvector vector(128) per user
with a cosine ANN index built lazily once rows exist. It also reads, but
never writes, the matching service's tables:

	users                  profile attributes for the feature encoder
	interest_tags          tag catalogue
	user_interest_tags     tag assignments
	swipes                 primary interaction source
	user_behavior_events   optional secondary interaction source

Whether user_behavior_events exists is checked once by Init and cached. If the
table disappears later, the read fails with undefined_table inside a
savepoint; the store rolls back to the savepoint, turns the capability off
and keeps going with swipes only.

Store implements embedding.SignalSource, embedding.ProfileSource and
embedding.VectorStore.
*/
package store
