// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/logging"
)

// SubscriberFactory returns the subscriber for one topic.
type SubscriberFactory func(topic string) (message.Subscriber, error)

// Config tunes a Consumer.
type Config struct {
	Handler      HandlerConfig
	CloseTimeout time.Duration
}

// Consumer routes every topic in Topics to a Handler.
type Consumer struct {
	router  *message.Router
	handler *Handler
	subs    []message.Subscriber
	logger  zerolog.Logger
}

// New wires a router with one consumer handler per topic.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, updater Updater, newSubscriber SubscriberFactory, logger zerolog.Logger) (*Consumer, error) {
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}
	logger = logger.With().Str("component", "consumer").Logger()

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logging.NewWatermillLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	c := &Consumer{
		router:  router,
		handler: NewHandler(updater, cfg.Handler, logger),
		logger:  logger,
	}

	for _, topic := range Topics {
		sub, err := newSubscriber(topic)
		if err != nil {
			c.closeSubscribers()
			return nil, err
		}
		c.subs = append(c.subs, sub)
		router.AddConsumerHandler("embedding-"+consumerName("", topic), topic, sub, c.handler.Handle(topic))
	}
	return c, nil
}

// Run blocks until ctx is cancelled or Close is called.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().Strs("topics", Topics).Msg("event consumer starting")
	err := c.router.Run(ctx)
	c.logger.Info().Msg("event consumer stopped")
	return err
}

// Running closes once every handler is subscribed.
func (c *Consumer) Running() <-chan struct{} {
	return c.router.Running()
}

// Close stops the router, waiting up to CloseTimeout for in-flight messages,
// then closes the subscribers.
func (c *Consumer) Close() error {
	err := c.router.Close()
	c.closeSubscribers()
	return err
}

func (c *Consumer) closeSubscribers() {
	for _, sub := range c.subs {
		if err := sub.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("subscriber close")
		}
	}
}
