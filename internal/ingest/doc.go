// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package ingest holds the intake buffer and the batch extractor.

# Buffer

Buffer keeps four index-aligned sequences: x, y, z and t. Connectors push
values one axis at a time, so the sequences can briefly differ in length. Only
the common prefix (the shortest sequence) is considered aligned and eligible
for extraction; anything beyond it stays put until the lagging axes catch up.

The timestamp for logical position i is taken from the first axis value that
reaches position i. After any sequence of Append calls, len(t) equals the
longest of x, y and z.

The buffer is unbounded. Each backlog sample costs roughly 48 bytes (three
float64 values plus one time.Time), so one hour of 100 Hz telemetry held back
by a stalled consumer is about 17 MB. WithHighWaterMark installs an
edge-triggered alarm that fires when the longest sequence crosses a limit.

# Extractor

Extractor.TryExtract removes exactly N aligned samples and wraps them in an
immutable models.Batch, or does nothing when fewer than N are available. The
availability check and the removal happen under one lock acquisition.

# Thread Safety

Every Buffer method holds the buffer mutex for its whole duration, so a
producer appending while the consumer drains observes either the state before
or after the drain, never a partial one.
*/
package ingest
