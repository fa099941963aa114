// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package consumer turns matching-service events into incremental embedding
updates.

Three JetStream subjects are consumed, all captured by one stream:

	behavior.batch        {events: [{userId, targetUserId, eventType, weight?}]}
	matching.swipe        {swiperId|userId, swipedId|targetUserId}
	user.profile.updated  {userId|id}

Every user id a message names is refreshed through the embedding updater.
Each topic gets its own durable consumer and queue group so replicas share
the load.

Delivery rules:

  - A payload that does not decode, or names no user, is logged, counted and
    acked. Redelivery would not fix it.
  - An updater error is returned to the router, which nacks; JetStream
    redelivers up to max_deliver times.
  - A panicking handler is recovered and treated as an error.
  - Each message is identified by its Nats-Msg-Id header, or by stream and
    sequence when the publisher set none. The subscriber's unmarshaler copies
    that id into MessageIDKey metadata; ids are remembered after success and
    a redelivery within the dedup window is skipped.

A token bucket (golang.org/x/time/rate) caps updates per second across all
handlers so an event burst cannot saturate the database.
*/
package consumer
