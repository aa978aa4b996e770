// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package connector

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorflow/internal/models"
)

// ErrMalformedPayload wraps every decode failure.
var ErrMalformedPayload = errors.New("malformed payload")

// Payload is the decoded content of one delivery. Per-axis updates land in
// Readings and complete records in Samples.
type Payload struct {
	Readings []models.Reading
	Samples  []models.Sample
}

// Len returns the total number of decoded items.
func (p Payload) Len() int {
	return len(p.Readings) + len(p.Samples)
}

type wireRecord struct {
	Axis       *string         `json:"axis"`
	Property   *string         `json:"property"`
	Value      *float64        `json:"value"`
	SensorName string          `json:"sensor_name"`
	Timestamp  json.RawMessage `json:"timestamp"`
	X          *float64        `json:"x"`
	Y          *float64        `json:"y"`
	Z          *float64        `json:"z"`
}

// legacyTimeLayout is the str(datetime) layout emitted by Python gateways.
const legacyTimeLayout = "2006-01-02 15:04:05.999999"

// Decode parses one payload. receivedAt stands in for missing timestamps.
// Any error wraps ErrMalformedPayload and nothing from a bad payload is
// returned, so a partially valid array is dropped as a whole.
func Decode(payload []byte, receivedAt time.Time) (Payload, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Payload{}, fmt.Errorf("%w: empty", ErrMalformedPayload)
	}

	switch trimmed[0] {
	case '{':
		var rec wireRecord
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		var out Payload
		if err := appendRecord(&out, &rec, receivedAt); err != nil {
			return Payload{}, err
		}
		return out, nil

	case '[':
		var recs []wireRecord
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if len(recs) == 0 {
			return Payload{}, fmt.Errorf("%w: empty array", ErrMalformedPayload)
		}
		var out Payload
		for i := range recs {
			if err := appendRecord(&out, &recs[i], receivedAt); err != nil {
				return Payload{}, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return out, nil

	default:
		s, err := decodeLine(string(trimmed), receivedAt)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Samples: []models.Sample{s}}, nil
	}
}

func appendRecord(out *Payload, rec *wireRecord, receivedAt time.Time) error {
	ts, err := parseTimestamp(rec.Timestamp, receivedAt)
	if err != nil {
		return err
	}

	name := rec.Axis
	if name == nil {
		name = rec.Property
	}

	if name != nil {
		axis, err := models.ParseAxis(*name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if rec.Value == nil {
			return fmt.Errorf("%w: axis %s without value", ErrMalformedPayload, axis)
		}
		if !models.IsFinite(*rec.Value) {
			return fmt.Errorf("%w: non-finite value on axis %s", ErrMalformedPayload, axis)
		}
		out.Readings = append(out.Readings, models.Reading{Axis: axis, Value: *rec.Value, Timestamp: ts})
		return nil
	}

	if rec.X == nil || rec.Y == nil || rec.Z == nil {
		return fmt.Errorf("%w: record needs axis/value or all of x, y, z", ErrMalformedPayload)
	}
	s := models.Sample{Timestamp: ts, X: *rec.X, Y: *rec.Y, Z: *rec.Z}
	if !s.Finite() {
		return fmt.Errorf("%w: non-finite sample", ErrMalformedPayload)
	}
	out.Samples = append(out.Samples, s)
	return nil
}

func parseTimestamp(raw json.RawMessage, receivedAt time.Time) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return receivedAt, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedPayload, err)
		}
		return parseTimeString(s)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedPayload, err)
	}
	return epochToTime(f)
}

func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(legacyTimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return epochToTime(f)
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrMalformedPayload, s)
}

// maxEpochMillis rejects epochs too large to convert to int64 milliseconds.
// It is past the year 300000.
const maxEpochMillis = 1e16

// epochToTime reads values above 1e12 as milliseconds, anything else as
// seconds.
func epochToTime(f float64) (time.Time, error) {
	if !models.IsFinite(f) || f <= 0 || f >= maxEpochMillis {
		return time.Time{}, fmt.Errorf("%w: invalid epoch %v", ErrMalformedPayload, f)
	}
	if f > 1e12 {
		ms := math.Floor(f)
		return time.UnixMilli(int64(ms)).Add(time.Duration((f - ms) * float64(time.Millisecond))).UTC(), nil
	}
	sec := math.Floor(f)
	return time.Unix(int64(sec), int64((f-sec)*1e9)).UTC(), nil
}

// decodeLine parses "x,y,z" or "timestamp,x,y,z".
func decodeLine(line string, receivedAt time.Time) (models.Sample, error) {
	fields := strings.Split(line, ",")
	ts := receivedAt

	switch len(fields) {
	case 3:
	case 4:
		t, err := parseTimeString(fields[0])
		if err != nil {
			return models.Sample{}, err
		}
		ts = t
		fields = fields[1:]
	default:
		return models.Sample{}, fmt.Errorf("%w: expected 3 or 4 fields, got %d", ErrMalformedPayload, len(fields))
	}

	var vals [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return models.Sample{}, fmt.Errorf("%w: field %d: %v", ErrMalformedPayload, i, err)
		}
		vals[i] = v
	}

	s := models.Sample{Timestamp: ts, X: vals[0], Y: vals[1], Z: vals[2]}
	if !s.Finite() {
		return models.Sample{}, fmt.Errorf("%w: non-finite sample", ErrMalformedPayload)
	}
	return s, nil
}
