// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package reconnect keeps the telemetry connection alive.

Supervisor runs a single loop that moves through four states:

	Disconnected -> Connecting -> Streaming
	                    ^            |
	                    |            v
	                    +-------- Failed   (after the backoff delay)

Any connector error (dial failure, read error, remote close) moves the loop to
Failed. After sleeping for the current backoff delay it tries again. Delays
start at the initial value, double after every consecutive failure and are
capped at the maximum; entering Streaming resets them. There is no retry
limit: only cancellation of the context passed to Run ends the loop, at which
point the connector is closed and the state returns to Disconnected.

Malformed payloads never change state. They are dropped, counted, and logged
through a rate limiter so a misbehaving source cannot flood the log.

Readings are appended to the ingest buffer as they arrive, so samples received
before a disconnect stay buffered and are batched together with samples from
the next session.
*/
package reconnect
