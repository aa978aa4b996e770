// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package connector

import (
	"context"
	"errors"
)

var (
	// ErrStreamClosed is returned by Stream when the remote end closed the
	// session without a transport error.
	ErrStreamClosed = errors.New("stream closed by remote")

	// ErrNotConnected is returned by Stream when Connect has not succeeded.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionLost is returned by Stream when the transport dropped.
	ErrConnectionLost = errors.New("connection lost")
)

// DeliverFunc receives one raw payload. Connectors call it from a single
// goroutine, in arrival order.
type DeliverFunc func(payload []byte)

// Connector is a telemetry source session.
type Connector interface {
	// Connect opens a session. It returns once the source is ready to stream.
	Connect(ctx context.Context) error

	// Stream delivers payloads until the session ends and returns the reason.
	// It returns ctx.Err() when ctx is cancelled.
	Stream(ctx context.Context, deliver DeliverFunc) error

	// Close releases the current session. It is safe to call when no
	// session is open.
	Close() error

	// String names the connector in logs and metrics.
	String() string
}
