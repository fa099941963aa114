// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package supervisor runs the long-lived parts of affinity under a suture v4
tree.

	RootSupervisor ("affinity")
	├── DataSupervisor ("data-layer")
	│   └── TrainingSchedulerService
	├── MessagingSupervisor ("messaging-layer")
	│   ├── EmbeddedNATSService (if nats.embedded_server)
	│   └── ConsumerService (if nats.enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with suture's backoff; the messaging layer backs
off longer (MessagingBackoff). Each layer counts failures independently,
so a consumer that cannot reach NATS keeps restarting without affecting
request serving.

Shutdown cancels the tree context. Every service gets ShutdownTimeout to
return; Run logs and returns the ones that did not. A batch training
run in progress is not cancelled by shutdown.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewTrainingSchedulerService(trainer, store, schedCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(srv, srv.Addr, cfg.Server.ShutdownTimeout, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	_, err = tree.Run(ctx)
	return err

Service wrappers live in the services subpackage.
*/
package supervisor
