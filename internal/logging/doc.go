// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

// Package logging provides the process-wide zerolog logger for sensorflow.
//
// Every component logs through the package-level helpers so that a single
// Init call at startup controls level, format and destination:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Int("batch_size", n).Msg("Pipeline started")
//	logging.Warn().Err(err).Str("connector", name).Msg("Connection lost")
//
// Components that emit many events create a child logger once:
//
//	log := logging.WithComponent("reconnect")
//	log.Info().Str("from", "connecting").Str("to", "streaming").Msg("State transition")
//
// # Configuration
//
// Environment variables (mapped through internal/config):
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//	LOG_SAMPLE_EVERY - keep one in N trace/debug lines (default: 0, keep all)
//
// Every line carries service=sensorflow and the configured source type.
//
// # slog Adapter
//
// The supervision tree reports through sutureslog, which needs a
// *slog.Logger. NewSlogLogger returns one backed by the global zerolog
// logger so supervisor events end up in the same stream.
//
// # Testing
//
// NewTestLogger writes JSON lines to any io.Writer; tests swap it in with
// SetLogger and inspect the buffer.
package logging
