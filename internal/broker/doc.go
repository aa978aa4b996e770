// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

// Package broker hosts an optional in-process NATS server and the Watermill
// logger adapter shared by the NATS connector and the NATS batch sink.
//
// Running the embedded server lets a single sensorflow binary act as the
// message hub for gateways on the local network: gateways publish readings
// to the source subject, and downstream consumers subscribe to the batch
// subject, without operating a separate nats-server.
package broker
