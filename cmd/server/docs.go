// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package main provides the affinity HTTP server
//
// @title Affinity API
// @version 1.0
// @description Embedding-based match recommendations for a dating app.
// @description
// @description ## Error Responses
// @description
// @description Success bodies are the bare JSON documented per route. Errors use:
// @description ```json
// @description {
// @description   "success": false,
// @description   "error": {
// @description     "code": "BAD_REQUEST",
// @description     "message": "Human-readable error message",
// @description     "request_id": "..."
// @description   }
// @description }
// @description ```
// @description
// @description ## Rate Limiting
// @description
// @description API routes: 600 requests per minute per IP by default (RATE_LIMIT_REQUESTS).
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/affinity
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /
// @schemes http https
package main
