// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package consumer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/affinity/internal/cache"
	"github.com/tomtom215/affinity/internal/embedding"
	"github.com/tomtom215/affinity/internal/metrics"
)

// Updater applies incremental embedding updates.
type Updater interface {
	UpdateMany(ctx context.Context, userIDs []string) (int, error)
}

// HandlerConfig tunes a Handler.
type HandlerConfig struct {
	// UpdatesPerSecond caps incremental updates across all topics. Zero
	// means unlimited.
	UpdatesPerSecond float64

	// DedupTTL is how long a processed message id is remembered.
	DedupTTL time.Duration

	// DedupCapacity bounds the remembered ids.
	DedupCapacity int
}

// Handler decodes events and dispatches user ids to an Updater.
type Handler struct {
	updater Updater
	limiter *rate.Limiter
	seen    *cache.LRU[struct{}]
	logger  zerolog.Logger
}

// NewHandler builds a Handler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(updater Updater, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 10 * time.Minute
	}
	return &Handler{
		updater: updater,
		limiter: newLimiter(cfg.UpdatesPerSecond),
		seen:    cache.NewLRU[struct{}](cfg.DedupCapacity, cfg.DedupTTL),
		logger:  logger,
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(math.Ceil(perSecond))
	return rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
}

// Handle returns the watermill handler for topic. A nil return acks, an
// error nacks.
func (h *Handler) Handle(topic string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		return h.Process(msg.Context(), topic, msg.Metadata.Get(MessageIDKey), msg.Payload)
	}
}

// Process handles one payload. msgID may be empty.
func (h *Handler) Process(ctx context.Context, topic, msgID string, payload []byte) error {
	dedupKey := ""
	if msgID != "" {
		dedupKey = topic + "/" + msgID
		if _, ok := h.seen.Get(dedupKey); ok {
			metrics.RecordConsumerMessage(topic, metrics.MessageDuplicate)
			h.logger.Debug().Str("topic", topic).Str("msg_id", msgID).Msg("skipping redelivered message")
			return nil
		}
	}

	ids, err := DecodeUserIDs(topic, payload)
	if err != nil {
		metrics.RecordConsumerMessage(topic, metrics.MessageMalformed)
		h.logger.Warn().Err(err).Str("topic", topic).Int("bytes", len(payload)).Msg("dropping malformed event")
		return nil
	}
	ids = embedding.Dedupe(ids)

	for range ids {
		if err := h.limiter.Wait(ctx); err != nil {
			metrics.RecordConsumerMessage(topic, metrics.MessageFailed)
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	updated, err := h.updater.UpdateMany(ctx, ids)
	if err != nil {
		metrics.RecordConsumerMessage(topic, metrics.MessageFailed)
		if !errors.Is(err, context.Canceled) {
			h.logger.Error().Err(err).Str("topic", topic).Strs("user_ids", ids).Msg("incremental update failed")
		}
		return fmt.Errorf("update embeddings from %s: %w", topic, err)
	}

	if dedupKey != "" {
		h.seen.Add(dedupKey, struct{}{})
	}
	metrics.RecordConsumerMessage(topic, metrics.MessageProcessed)
	h.logger.Debug().Str("topic", topic).Int("users", len(ids)).Int("updated", updated).Msg("event processed")
	return nil
}
