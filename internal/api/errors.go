// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import "errors"

var (
	// ErrEmptyBody is returned by decodeJSON when the request has no body.
	ErrEmptyBody = errors.New("request body is required")

	// ErrBodyTooLarge is returned by decodeJSON when the body exceeds the
	// configured limit.
	ErrBodyTooLarge = errors.New("request body too large")
)
