// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

// Package services adapts components without a context-aware Serve method to
// suture.Service. The dispatcher, poller, hub, reconnect supervisor, archive
// compactor and embedded broker implement Serve themselves and are added to
// the tree directly.
package services
