// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/consumer"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/supervisor"
	"github.com/tomtom215/affinity/internal/supervisor/services"
)

// embeddedServerConfig derives the listen address of the embedded server
// from the client URL so that the consumer connects to it unchanged.
func embeddedServerConfig(cfg config.NATSConfig) (consumer.ServerConfig, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return consumer.ServerConfig{}, fmt.Errorf("invalid nats url %q: %w", cfg.URL, err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return consumer.ServerConfig{}, fmt.Errorf("nats url %q needs host:port: %w", cfg.URL, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return consumer.ServerConfig{}, fmt.Errorf("invalid nats port %q: %w", portStr, err)
	}
	return consumer.ServerConfig{Host: host, Port: port, StoreDir: cfg.StoreDir}, nil
}

func subscriberConfig(cfg config.NATSConfig) consumer.SubscriberConfig {
	return consumer.SubscriberConfig{
		URL:              cfg.URL,
		StreamName:       cfg.StreamName,
		DurableName:      cfg.DurableName,
		QueueGroup:       cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWait:          cfg.AckWait,
		MaxDeliver:       cfg.MaxDeliver,
		MaxAckPending:    cfg.MaxAckPending,
		CloseTimeout:     cfg.CloseTimeout,
	}
}

func streamConfig(cfg config.NATSConfig) consumer.StreamConfig {
	return consumer.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: consumer.Topics,
		MaxAge:   cfg.StreamMaxAge,
	}
}

// addMessagingServices adds the optional embedded server and the event
// consumer to the messaging layer.
func addMessagingServices(tree *supervisor.SupervisorTree, cfg *config.Config, updater consumer.Updater) {
	natsCfg := cfg.NATS

	if natsCfg.EmbeddedServer {
		srvCfg, err := embeddedServerConfig(natsCfg)
		if err != nil {
			logging.Error().Err(err).Msg("Embedded NATS server disabled")
		} else {
			tree.AddMessagingService(services.NewEmbeddedNATSService(func() (services.EmbeddedServer, error) {
				srv, err := consumer.NewEmbeddedServer(srvCfg)
				if err != nil {
					return nil, err
				}
				return srv, nil
			}, natsCfg.CloseTimeout, logging.WithComponent("nats")))
			logging.Info().Str("url", natsCfg.URL).Str("store_dir", natsCfg.StoreDir).Msg("Embedded NATS server added")
		}
	}

	wmLogger := logging.NewWatermillLogger(logging.WithComponent("watermill"))
	handlerCfg := consumer.HandlerConfig{UpdatesPerSecond: natsCfg.UpdatesPerSecond}

	tree.AddMessagingService(services.NewConsumerService(services.ConsumerServiceConfig{
		Prepare: func(ctx context.Context) error {
			return consumer.PrepareStream(ctx, natsCfg.URL, streamConfig(natsCfg))
		},
		Build: func() (services.ConsumerRunner, error) {
			return consumer.New(
				consumer.Config{Handler: handlerCfg, CloseTimeout: natsCfg.CloseTimeout},
				updater,
				consumer.NATSSubscriberFactory(subscriberConfig(natsCfg), wmLogger),
				logging.WithComponent("consumer"),
			)
		},
	}, logging.WithComponent("consumer")))

	logging.Info().
		Str("url", natsCfg.URL).
		Str("stream", natsCfg.StreamName).
		Strs("subjects", consumer.Topics).
		Msg("Event consumer added")
}
