// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package models

import "time"

// ConnectionState is the lifecycle state of the telemetry connection.
type ConnectionState int32

// Connection states. Failed is transient: the supervisor always moves on to
// Connecting after the backoff delay unless it is cancelled.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateStreaming
	StateFailed
)

// String returns the lower-case state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BackoffState is the reconnect delay currently in force.
type BackoffState struct {
	Current time.Duration `json:"current"`
	Max     time.Duration `json:"max"`
}
