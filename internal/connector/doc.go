// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package connector implements the telemetry sources sensorflow can ingest from
and the codec that turns their raw payloads into readings.

# Connectors

Each connector opens one session per Connect call and delivers raw payloads
from Stream until the session ends. Connectors never retry on their own; the
reconnect supervisor owns retry timing.

  - WebSocketConnector: dials a ws:// or wss:// endpoint and streams text or
    binary frames (gorilla/websocket).
  - NATSConnector: subscribes to a core NATS subject through Watermill.

# Payload Formats

Decode accepts JSON objects, JSON arrays of objects, and plain text lines:

	{"axis":"x","value":0.12,"timestamp":"2024-05-01T12:00:00.010Z"}
	{"property":"py_y","value":-0.98}
	{"sensor_name":"wrist","timestamp":1714564800.01,"x":0.1,"y":0.2,"z":9.8}
	0.1,0.2,9.8
	2024-05-01T12:00:00Z,0.1,0.2,9.8

Timestamps may be RFC 3339 strings, "2006-01-02 15:04:05.999999" strings, or
numeric epoch seconds (values above 1e12 are taken as milliseconds). A missing
timestamp becomes the arrival time.
*/
package connector
