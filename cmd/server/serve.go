// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/affinity/internal/api"
	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/supervisor"
	"github.com/tomtom215/affinity/internal/supervisor/services"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, training scheduler and event consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func middlewareConfig(cfg *config.Config) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mw.RateLimitRequests = cfg.Security.RateLimitReqs
	mw.RateLimitWindow = cfg.Security.RateLimitWindow
	mw.RateLimitDisabled = cfg.Security.RateLimitDisabled
	return mw
}

func newHTTPServer(cfg *config.Config, c *components) *http.Server {
	handler := api.NewHandler(api.Deps{
		Recommender:    c.recommender,
		Updater:        c.updater,
		Trainer:        c.trainer,
		Store:          c.store,
		CacheBackend:   c.cache.Backend(),
		RequestTimeout: cfg.Recommend.RequestTimeout,
		TrainTimeout:   cfg.Embedding.TrainTimeout,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(middlewareConfig(cfg)))

	return &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// serve runs the supervisor tree until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	logging.Info().
		Str("model_version", cfg.Embedding.ModelVersion).
		Msg("Starting affinity with supervisor tree")

	c, err := openComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	scheduler := services.NewTrainingSchedulerService(c.trainer, c.store, services.TrainingSchedulerConfig{
		TrainHour:        cfg.Embedding.TrainHour,
		Timeout:          cfg.Embedding.TrainTimeout,
		BootstrapOnEmpty: cfg.Embedding.BootstrapOnEmpty,
	}, logging.WithComponent("scheduler"))
	tree.AddDataService(scheduler)
	logging.Info().Int("train_hour_utc", cfg.Embedding.TrainHour).Msg("Training scheduler added")

	if cfg.NATS.Enabled {
		addMessagingServices(tree, cfg, c.updater)
	} else {
		logging.Info().Msg("Event consumer disabled (NATS_ENABLED=false)")
	}

	server := newHTTPServer(cfg, c)
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	if _, err := tree.Run(ctx); err != nil {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	if !scheduler.WaitIdle(cfg.Server.ShutdownTimeout) {
		logging.Warn().Msg("Training run still in progress at exit; its results are lost")
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}
