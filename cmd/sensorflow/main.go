// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tomtom215/sensorflow/internal/api"
	"github.com/tomtom215/sensorflow/internal/broker"
	"github.com/tomtom215/sensorflow/internal/config"
	"github.com/tomtom215/sensorflow/internal/dispatch"
	"github.com/tomtom215/sensorflow/internal/ingest"
	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/pipeline"
	"github.com/tomtom215/sensorflow/internal/reconnect"
	"github.com/tomtom215/sensorflow/internal/sink"
	"github.com/tomtom215/sensorflow/internal/supervisor"
	"github.com/tomtom215/sensorflow/internal/supervisor/services"
	ws "github.com/tomtom215/sensorflow/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string

	flagSet := pflag.NewFlagSet("sensorflow", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default: $CONFIG_PATH or ./config.yaml)")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sensorflow [flags]\n\nFlags:\n")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Caller:      cfg.Logging.Caller,
		Timestamp:   true,
		Service:     "sensorflow",
		Fields:      map[string]string{"source": cfg.Source.Type},
		SampleEvery: cfg.Logging.SampleEvery,
		Output:      os.Stderr,
	})

	logging.Info().
		Str("source_type", cfg.Source.Type).
		Str("source_url", cfg.Source.URL).
		Int("batch_size", cfg.Pipeline.BatchSize).
		Dur("poll_interval", cfg.Pipeline.PollInterval()).
		Msg("Starting sensorflow")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	if tree.Config().ShutdownTimeout <= cfg.Dispatch.DrainTimeout {
		logging.Warn().
			Dur("shutdown_timeout", tree.Config().ShutdownTimeout).
			Dur("drain_timeout", cfg.Dispatch.DrainTimeout).
			Msg("Supervisor shutdown timeout does not exceed the dispatch drain timeout; queued batches may be abandoned")
	}

	// Data layer: embedded broker and sinks.
	var embeddedURL string
	if cfg.Broker.Embedded {
		srv, err := broker.NewEmbeddedServer(broker.ServerConfig{
			Host:         cfg.Broker.Host,
			Port:         cfg.Broker.Port,
			MaxPayload:   broker.DefaultServerConfig().MaxPayload,
			ReadyTimeout: broker.DefaultServerConfig().ReadyTimeout,
		})
		if err != nil {
			return fmt.Errorf("start embedded NATS server: %w", err)
		}
		embeddedURL = srv.ClientURL()
		tree.AddDataService(srv)
	}

	sinks, err := openSinks(ctx, cfg.Sinks, sink.BreakerConfig{
		MaxRequests:      cfg.Dispatch.Breaker.MaxRequests,
		Interval:         cfg.Dispatch.Breaker.Interval,
		Timeout:          cfg.Dispatch.Breaker.Timeout,
		FailureThreshold: cfg.Dispatch.Breaker.FailureThreshold,
	}, embeddedURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := sinks.fanout.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close sinks")
		}
	}()

	var archive api.BatchArchive
	if sinks.archive != nil {
		archive = sinks.archive
		if cfg.Sinks.Archive.GCInterval > 0 {
			tree.AddDataService(sink.NewCompactor(sinks.archive, cfg.Sinks.Archive.GCInterval))
		}
	}

	// Ingest layer: buffer fed by the reconnect supervisor.
	buffer := ingest.NewBuffer(ingest.WithHighWaterMark(cfg.Pipeline.HighWaterMark))

	conn, err := newConnector(cfg.Source)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close connector")
		}
	}()

	recon, err := reconnect.New(conn, buffer, reconnectConfig(cfg))
	if err != nil {
		return fmt.Errorf("create reconnect supervisor: %w", err)
	}
	tree.AddIngestService(recon)

	// Pipeline layer: poller carves batches, dispatcher persists and renders.
	hub := ws.NewHub()

	dispatcher := dispatch.New(sinks.fanout, hub, dispatch.Config{
		Async:        cfg.Dispatch.Async,
		QueueSize:    cfg.Dispatch.QueueSize,
		DrainTimeout: cfg.Dispatch.DrainTimeout,
		WriteTimeout: cfg.Dispatch.WriteTimeout,
	})
	tree.AddPipelineService(dispatcher)

	poller := pipeline.NewPoller(buffer, nil, dispatcher,
		pipeline.Config{
			BatchSize:    cfg.Pipeline.BatchSize,
			PollInterval: cfg.Pipeline.PollInterval(),
		},
		pipeline.WithStatus(hub),
		pipeline.WithStateFunc(recon.State),
		pipeline.WithAlarms(buffer.Alarms()),
	)
	tree.AddPipelineService(poller)

	// API layer: hub and HTTP server.
	handler := api.NewHandler(api.Config{
		BatchSize:         cfg.Pipeline.BatchSize,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
		RateLimitDisabled: cfg.Server.RateLimitDisabled,
	}, api.Dependencies{
		Hub:        hub,
		Buffer:     buffer,
		Connection: recon,
		Dispatcher: dispatcher,
		Poller:     poller,
		Archive:    archive,
	})

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           handler.Routes(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	tree.AddAPIService(hub)
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	ds := dispatcher.Stats()
	logging.Info().
		Uint64("dispatched", ds.Dispatched).
		Uint64("failed", ds.Failed).
		Uint64("dropped", ds.Dropped).
		Msg("Sensorflow stopped")
	return nil
}
