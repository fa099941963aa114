// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package middleware

import "net/http"

// DefaultMaxBodyBytes is the request body cap applied by the API router.
const DefaultMaxBodyBytes int64 = 1 << 20

// MaxBodySize caps request bodies at limit bytes. Reads beyond the cap fail,
// which JSON decoding surfaces as a bad request.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
