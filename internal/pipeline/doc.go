// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

// Package pipeline runs the consumer side: on every poll tick it carves as
// many full batches as the intake buffer holds, submits them for dispatch in
// order, and publishes a buffer status update.
package pipeline
