// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package services provides suture.Service wrappers for affinity components.

Each wrapper turns a component lifecycle into suture's
Serve(ctx context.Context) error and identifies itself through String.

HTTPServerService binds the listen address itself and serves *http.Server on
it. Cancellation calls Shutdown with a bounded timeout.

TrainingSchedulerService triggers batch training daily at a fixed UTC hour
and once at start when no embeddings exist. Runs are detached from the
service context.

ConsumerService provisions the JetStream stream, builds a watermill router
and runs it. A router can only run once, so every restart builds a new one.

EmbeddedNATSService starts an in-process NATS server for single-node
deployments and reports it as failed if it stops on its own.
*/
package services
