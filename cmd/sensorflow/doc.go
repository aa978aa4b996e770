// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

// Package main is the entry point for the sensorflow service.
//
// Sensorflow connects to a streaming telemetry source, accumulates per-axis
// accelerometer readings into an ingest buffer, carves fixed-size aligned
// batches out of it on a timer, and hands each batch to the persistence sinks
// and to connected visualization clients.
//
// # Application Architecture
//
// The service wires its components in this order:
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Logging: zerolog, bridged to slog for the supervisor tree
//  3. Embedded NATS server (optional, broker.embedded)
//  4. Sinks: CSV, DuckDB, Badger archive and NATS publisher behind a fan-out
//  5. Ingest buffer and the source connector (websocket or nats)
//  6. Dispatcher, poller and WebSocket hub
//  7. HTTP server: /ws, /health, /metrics and /api/v1
//  8. Supervisor tree: data, ingest, pipeline and api layers
//
// # Configuration
//
// Configuration is layered (highest priority wins):
//   - Environment variables (SOURCE_URL, BATCH_SIZE, HTTP_PORT, ...)
//   - Config file (--config, CONFIG_PATH, or ./config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The poller runs a final
// extraction pass, the dispatcher drains queued batches for up to
// dispatch.drain_timeout, the HTTP server stops accepting connections, and the
// sinks are closed once the supervisor tree has returned.
//
// # Example Usage
//
//	export SOURCE_URL=ws://192.168.1.40:81/
//	export BATCH_SIZE=1000
//	./sensorflow
//
// With a NATS source served by the embedded broker:
//
//	export SOURCE_TYPE=nats
//	export SOURCE_URL=nats://127.0.0.1:4222
//	export SOURCE_SUBJECT=sensors.imu
//	export NATS_EMBEDDED=true
//	./sensorflow --config config.yaml
package main
