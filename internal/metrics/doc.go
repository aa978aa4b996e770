// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package metrics registers sensorflow's Prometheus collectors.

All collectors are package-level promauto variables registered on the default
registry and served at /metrics. Components call the Record* helpers instead of
touching collectors directly so label values stay consistent.

# Available Metrics

Ingest:
  - sensorflow_readings_received_total{axis}: per-axis values appended
  - sensorflow_malformed_payloads_total{connector}: payloads dropped by the codec
  - sensorflow_buffer_length{sequence}: current length of x, y, z and t
  - sensorflow_buffer_available_samples: aligned samples ready for extraction
  - sensorflow_buffer_high_water_alarms_total

Batching and dispatch:
  - sensorflow_batches_extracted_total, sensorflow_samples_extracted_total
  - sensorflow_dispatch_total{outcome}: ok, error, dropped
  - sensorflow_dispatch_duration_seconds
  - sensorflow_dispatch_queue_depth
  - sensorflow_sink_write_duration_seconds{sink}, sensorflow_sink_write_errors_total{sink}
  - sensorflow_circuit_breaker_state{name}: 0 closed, 1 half-open, 2 open

Connection:
  - sensorflow_connection_state: 0 disconnected, 1 connecting, 2 streaming, 3 failed
  - sensorflow_state_transitions_total{from,to}
  - sensorflow_reconnect_attempts_total
  - sensorflow_backoff_delay_seconds

Visualization and API:
  - sensorflow_ws_connections, sensorflow_ws_broadcast_dropped_total
  - sensorflow_ws_messages_total{type}
  - sensorflow_http_requests_total{method,route,status}
  - sensorflow_http_request_duration_seconds{method,route}

Archive:
  - sensorflow_archive_gc_runs_total{result}
*/
package metrics
