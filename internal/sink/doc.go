// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package sink implements the persistence targets a finished batch is written to.

  - CSVSink: one CSV file per batch (Timestamp,Accel_X,Accel_Y,Accel_Z)
  - DuckDBSink: rows in an embedded DuckDB database for ad-hoc analysis
  - ArchiveSink: zstd-compressed JSON batches in BadgerDB, addressable by sequence
  - NATSSink: batch JSON published on a NATS subject via Watermill
  - Fanout: writes one batch to several sinks and joins their errors
  - BreakerSink: a per-sink circuit breaker, so one dead sink fails fast
    while the rest of the Fanout keeps receiving batches

Writes are best effort. A failed write is reported to the caller and never
retried here; the dispatcher logs it and moves on to the next batch.
*/
package sink
