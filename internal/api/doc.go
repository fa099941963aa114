// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package api provides the HTTP surface consumed by the matching service.

Routes:

  - POST /recommendations: cache-aware top-N, returns [{userId, score}]
  - POST /recommend: always recomputed, returns {recommendations: [{user_id, score}]}
  - POST /update-embedding: refreshes one user's explicit features
  - POST /batch-update: runs a full training cycle synchronously
  - GET /health: store connectivity, embedding count, last training run
  - GET /metrics: Prometheus exposition
  - GET /swagger/*: OpenAPI UI

Success bodies are the bare JSON documents above so existing clients keep
working. Errors share one envelope:

	{"success": false, "error": {"code": "BAD_REQUEST", "message": "...", "request_id": "..."}}

Middleware order for the API routes: request id, real IP, recoverer,
Prometheus, CORS, per-IP rate limit, body size limit. The service has no
authentication; it is reachable only from inside the matching service's
network.

Usage:

	handler := api.NewHandler(api.Deps{
	    Recommender: recommender,
	    Updater:     updater,
	    Trainer:     trainer,
	    Store:       store,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(chiCfg))
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: router.SetupChi()}
*/
package api
