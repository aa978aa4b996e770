// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Axis identifies one accelerometer channel.
type Axis uint8

// Accelerometer channels.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists every channel in column order.
var Axes = [...]Axis{AxisX, AxisY, AxisZ}

// String returns the lower-case axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

// Valid reports whether a is one of the three known channels.
func (a Axis) Valid() bool {
	return a <= AxisZ
}

// ParseAxis accepts "x", "y", "z" in any case, and the cloud property
// names "py_x", "py_y", "py_z".
func ParseAxis(s string) (Axis, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "py_")
	switch name {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return 0, fmt.Errorf("unknown axis %q", s)
	}
}

// Reading is one per-axis value pushed by a telemetry source. A zero
// Timestamp means the source did not provide one and arrival time applies.
type Reading struct {
	Axis      Axis
	Value     float64
	Timestamp time.Time
}

// Sample is one aligned accelerometer record.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
}

// Value returns the component for axis.
func (s Sample) Value(axis Axis) float64 {
	switch axis {
	case AxisX:
		return s.X
	case AxisY:
		return s.Y
	default:
		return s.Z
	}
}

// Finite reports whether all three components are finite numbers.
func (s Sample) Finite() bool {
	return IsFinite(s.X) && IsFinite(s.Y) && IsFinite(s.Z)
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
