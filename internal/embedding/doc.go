// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package embedding computes, refreshes and serves per-user match embeddings.

An embedding is a 128-wide unit vector: 64 latent components factorized from
the user-user interaction graph followed by 64 explicit components encoded
from the profile. The package is pure domain logic; persistence, caching and
transport live behind the SignalSource, ProfileSource, VectorStore and
RecommendationCache interfaces.

# Pipeline

	SignalSource ──► BuildInteractionMatrix ──► Solver ──┐
	                                                     ├─► Compose ──► VectorStore
	ProfileSource ──► Encoder ───────────────────────────┘

Trainer runs the full pipeline under a mutex so at most one batch run is in
flight. Updater refreshes the explicit block of a single user from streamed
events without touching the latent block. Recommender answers similarity
queries from the cache first and the vector store on a miss.

# Determinism

Tag slots use 32-bit FNV-1a over the tag name bytes and the solver seeds its
random projection with a fixed value, so identical inputs reproduce
identical vectors across processes.
*/
package embedding
