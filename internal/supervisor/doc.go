// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package supervisor runs sensorflow's long-lived services under a suture v4
supervision tree.

# Overview

	RootSupervisor ("sensorflow")
	├── DataSupervisor ("data-layer")
	│   ├── nats-server (if broker.embedded)
	│   └── archive-compactor (if sinks.archive.enabled)
	├── IngestSupervisor ("ingest-layer")
	│   └── reconnect-supervisor(websocket|nats)
	├── PipelineSupervisor ("pipeline-layer")
	│   ├── dispatcher
	│   └── poller
	└── APISupervisor ("api-layer")
	    ├── websocket-hub
	    └── http-server

A telemetry source that keeps failing is already paced by the reconnect
supervisor's own backoff; suture only restarts a service whose Serve returned
before its context was cancelled.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
	    FailureThreshold: cfg.Supervisor.FailureThreshold,
	    ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
	    return err
	}
	tree.AddIngestService(reconnectSupervisor)
	tree.AddPipelineService(dispatcher)
	tree.AddPipelineService(poller)
	tree.AddAPIService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Shutdown

Cancelling the context stops every layer. The poller runs one last extraction
pass and then tells the dispatcher no more batches are coming; the dispatcher
drains its queue until that signal or its drain timeout. ShutdownTimeout must
exceed the drain timeout or suture abandons the dispatcher mid-drain and
reports it in UnstoppedServiceReport.

Sinks are not services. The caller closes them after Serve returns.
*/
package supervisor
