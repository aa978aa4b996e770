// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package websocket feeds the live chart: every dispatched batch and every
buffer status update is pushed to connected browsers.

Key Components:

  - Hub: owns the client set and fans messages out. It is the pipeline's
    renderer (Render) and is run as a supervised service.
  - Client: one gorilla/websocket connection with a read pump and a write pump.
  - Message: {"type": ..., "data": ...} envelope.

Message Types:

  - batch: columnar view of one batch (seq, id, size, timestamps, x, y, z)
  - buffer_status: intake backlog relative to the batch size
  - ping / pong: application-level keepalive initiated by the client

A newly registered client immediately receives the most recent batch so the
chart is never empty while the next batch is being collected.

Broadcasting never blocks the caller. When the hub's broadcast channel is
full the message is dropped and counted; a client whose send buffer is full
is disconnected.

Connection Lifecycle:

 1. Client connects via HTTP upgrade on /ws
 2. Hub registers client and replays the latest batch
 3. Client starts read/write goroutines
 4. Hub broadcasts messages to all clients
 5. Client disconnects (network error or explicit close)
 6. Hub unregisters client and closes its send channel
*/
package websocket
