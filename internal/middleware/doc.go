// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package middleware provides the HTTP middleware shared by the API router:
// request ids, Prometheus instrumentation and request body limits.
//
// All middleware use the chi signature func(http.Handler) http.Handler.
package middleware
