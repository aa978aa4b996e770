// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package models defines the value types shared by every sensorflow stage.

  - Axis: one of the three accelerometer channels (X, Y, Z)
  - Reading: a single per-axis value as delivered by a connector
  - Sample: one aligned (timestamp, x, y, z) record
  - Batch: an immutable, fixed-size, time-ordered run of samples
  - ConnectionState: the reconnect supervisor's lifecycle states

Batch values are safe to share between goroutines. Their sample storage is
unexported and every accessor returning a slice hands out a copy, so a batch
dispatched to several sinks cannot be modified by any of them.
*/
package models
