// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrColumnMismatch is returned when column slices differ in length.
var ErrColumnMismatch = errors.New("column lengths differ")

// Batch is an immutable run of aligned samples carved from the ingest buffer.
type Batch struct {
	id        uuid.UUID
	seq       uint64
	createdAt time.Time
	samples   []Sample
}

// Columns is the column-oriented view of a batch, the shape charts consume.
type Columns struct {
	Timestamps []time.Time `json:"timestamps"`
	X          []float64   `json:"x"`
	Y          []float64   `json:"y"`
	Z          []float64   `json:"z"`
}

// NewBatch builds a batch from samples. The slice is copied.
func NewBatch(seq uint64, samples []Sample) Batch {
	owned := make([]Sample, len(samples))
	copy(owned, samples)
	return Batch{
		id:        uuid.New(),
		seq:       seq,
		createdAt: time.Now().UTC(),
		samples:   owned,
	}
}

// NewBatchFromColumns zips four equally long columns into a batch.
func NewBatchFromColumns(seq uint64, ts []time.Time, xs, ys, zs []float64) (Batch, error) {
	n := len(ts)
	if len(xs) != n || len(ys) != n || len(zs) != n {
		return Batch{}, fmt.Errorf("%w: t=%d x=%d y=%d z=%d", ErrColumnMismatch, n, len(xs), len(ys), len(zs))
	}
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{Timestamp: ts[i], X: xs[i], Y: ys[i], Z: zs[i]}
	}
	return Batch{
		id:        uuid.New(),
		seq:       seq,
		createdAt: time.Now().UTC(),
		samples:   samples,
	}, nil
}

// ID returns the batch's unique identifier.
func (b Batch) ID() uuid.UUID { return b.id }

// Seq returns the 1-based production sequence number.
func (b Batch) Seq() uint64 { return b.seq }

// CreatedAt returns when the batch was carved.
func (b Batch) CreatedAt() time.Time { return b.createdAt }

// Len returns the number of samples.
func (b Batch) Len() int { return len(b.samples) }

// At returns the i-th sample. It panics if i is out of range.
func (b Batch) At(i int) Sample { return b.samples[i] }

// Samples returns a copy of the samples.
func (b Batch) Samples() []Sample {
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// First returns the earliest sample timestamp, or the zero time when empty.
func (b Batch) First() time.Time {
	if len(b.samples) == 0 {
		return time.Time{}
	}
	return b.samples[0].Timestamp
}

// Last returns the latest sample timestamp, or the zero time when empty.
func (b Batch) Last() time.Time {
	if len(b.samples) == 0 {
		return time.Time{}
	}
	return b.samples[len(b.samples)-1].Timestamp
}

// Columns returns freshly allocated columns for the batch.
func (b Batch) Columns() Columns {
	n := len(b.samples)
	c := Columns{
		Timestamps: make([]time.Time, n),
		X:          make([]float64, n),
		Y:          make([]float64, n),
		Z:          make([]float64, n),
	}
	for i, s := range b.samples {
		c.Timestamps[i] = s.Timestamp
		c.X[i] = s.X
		c.Y[i] = s.Y
		c.Z[i] = s.Z
	}
	return c
}

type batchJSON struct {
	ID        uuid.UUID `json:"id"`
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
	Samples   []Sample  `json:"samples"`
}

// MarshalJSON implements json.Marshaler.
func (b Batch) MarshalJSON() ([]byte, error) {
	samples := b.samples
	if samples == nil {
		samples = []Sample{}
	}
	return json.Marshal(batchJSON{
		ID:        b.id,
		Seq:       b.seq,
		CreatedAt: b.createdAt,
		Size:      len(samples),
		Samples:   samples,
	})
}

// UnmarshalJSON implements json.Unmarshaler. It is used when reading
// archived batches back.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var raw batchJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Size != len(raw.Samples) {
		return fmt.Errorf("batch %d: size %d does not match %d samples", raw.Seq, raw.Size, len(raw.Samples))
	}
	b.id = raw.ID
	b.seq = raw.Seq
	b.createdAt = raw.CreatedAt
	b.samples = raw.Samples
	return nil
}
