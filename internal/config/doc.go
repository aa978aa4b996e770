// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package config loads and validates sensorflow's configuration.

# Configuration Sources

Three layers are merged with koanf, later layers winning:

 1. Built-in defaults (struct provider)
 2. Optional YAML file: the --config flag, CONFIG_PATH, then config.yaml,
    config.yml, /etc/sensorflow/config.yaml, /etc/sensorflow/config.yml
 3. Environment variables, through an explicit name mapping

Unknown environment variables are ignored.

# Example

	source:
	  type: websocket
	  url: wss://sensors.example.com/accel
	pipeline:
	  batch_size: 1000
	  poll_interval_ms: 1000
	backoff:
	  initial_backoff_ms: 1000
	  max_backoff_ms: 60000
	sinks:
	  csv:
	    enabled: true
	    dir: week-8_data
	  archive:
	    enabled: true
	    path: /var/lib/sensorflow/archive
	    ttl: 168h
	server:
	  port: 8050

# Environment Variables

Pipeline:
  - BATCH_SIZE (default 1000)
  - POLL_INTERVAL_MS (default 1000)
  - HIGH_WATER_MARK (default 0, disabled)
  - INITIAL_BACKOFF_MS (default 1000)
  - MAX_BACKOFF_MS (default 60000)

Source:
  - SOURCE_TYPE: websocket or nats
  - SOURCE_URL, SOURCE_SUBJECT, SOURCE_QUEUE_GROUP

Sinks:
  - CSV_ENABLED, CSV_DIR
  - DUCKDB_ENABLED, DUCKDB_PATH
  - ARCHIVE_ENABLED, ARCHIVE_PATH, ARCHIVE_TTL, ARCHIVE_GC_INTERVAL
  - NATS_SINK_ENABLED, NATS_SINK_URL, NATS_SINK_SUBJECT
  - SINKS_NONE: run without persistence

Server and logging:
  - HTTP_HOST, HTTP_PORT (default 8050), ALLOWED_ORIGINS
  - RATE_LIMIT_REQUESTS (default 600), RATE_LIMIT_WINDOW (default 1m), RATE_LIMIT_DISABLED
  - NATS_EMBEDDED, NATS_EMBEDDED_HOST, NATS_EMBEDDED_PORT
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER, LOG_SAMPLE_EVERY

# Validation

Field rules are go-playground/validator tags checked through the
validation package. Cross-field rules: max_backoff_ms >= initial_backoff_ms,
the source URL scheme matches source.type, and at least one sink is enabled
unless sinks.none is set.
*/
package config
