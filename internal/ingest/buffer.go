// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package ingest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/sensorflow/internal/models"
)

var (
	// ErrInsufficientData is returned when a drain asks for more aligned
	// samples than the buffer holds.
	ErrInsufficientData = errors.New("insufficient aligned data")

	// ErrInvalidCount is returned for non-positive drain counts.
	ErrInvalidCount = errors.New("drain count must be positive")

	// ErrInvalidAxis is returned when appending to an unknown axis.
	ErrInvalidAxis = errors.New("invalid axis")
)

// InsufficientDataError reports how many samples were asked for and how
// many were aligned at the time.
type InsufficientDataError struct {
	Requested int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: requested %d, available %d", ErrInsufficientData, e.Requested, e.Available)
}

// Unwrap lets errors.Is match ErrInsufficientData.
func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// minShrinkCap is the smallest backing capacity the buffer bothers to
// release after a drain.
const minShrinkCap = 4096

// AxisLengths is a snapshot of the four sequence lengths.
type AxisLengths struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
	T int `json:"t"`
}

// Available returns the common prefix length.
func (l AxisLengths) Available() int {
	return min(l.X, l.Y, l.Z, l.T)
}

// Longest returns the length of the longest sequence.
func (l AxisLengths) Longest() int {
	return max(l.X, l.Y, l.Z, l.T)
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithHighWaterMark enables the backlog alarm at n samples. Zero disables it.
func WithHighWaterMark(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.highWater = n
		}
	}
}

// WithClock overrides the time source used for readings without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) {
		if now != nil {
			b.now = now
		}
	}
}

// Buffer is the unbounded intake buffer.
type Buffer struct {
	mu sync.Mutex
	x  []float64
	y  []float64
	z  []float64
	t  []time.Time

	highWater int
	alarmed   bool
	alarms    chan int

	now func() time.Time
}

// NewBuffer creates an empty buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		alarms: make(chan int, 1),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append adds one value to the given axis. A zero ts means "now".
// It never blocks on the consumer.
func (b *Buffer) Append(axis models.Axis, value float64, ts time.Time) error {
	if !axis.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAxis, axis)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if ts.IsZero() {
		ts = b.now()
	}
	b.appendLocked(axis, value, ts)
	b.checkHighWaterLocked()
	return nil
}

// AppendReading is Append for a models.Reading.
func (b *Buffer) AppendReading(r models.Reading) error {
	return b.Append(r.Axis, r.Value, r.Timestamp)
}

// AppendSample adds all three components of s in one critical section.
func (b *Buffer) AppendSample(s models.Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ts := s.Timestamp
	if ts.IsZero() {
		ts = b.now()
	}
	b.appendLocked(models.AxisX, s.X, ts)
	b.appendLocked(models.AxisY, s.Y, ts)
	b.appendLocked(models.AxisZ, s.Z, ts)
	b.checkHighWaterLocked()
}

func (b *Buffer) appendLocked(axis models.Axis, value float64, ts time.Time) {
	var n int
	switch axis {
	case models.AxisX:
		b.x = append(b.x, value)
		n = len(b.x)
	case models.AxisY:
		b.y = append(b.y, value)
		n = len(b.y)
	case models.AxisZ:
		b.z = append(b.z, value)
		n = len(b.z)
	}
	// The first axis to reach a new position stamps it.
	if n > len(b.t) {
		b.t = append(b.t, ts)
	}
}

func (b *Buffer) checkHighWaterLocked() {
	if b.highWater == 0 || b.alarmed {
		return
	}
	if longest := b.lengthsLocked().Longest(); longest >= b.highWater {
		b.alarmed = true
		select {
		case b.alarms <- longest:
		default:
		}
	}
}

// Alarms delivers the backlog size each time the high-water mark is crossed.
// Sends are non-blocking; an unread alarm is not repeated.
func (b *Buffer) Alarms() <-chan int {
	return b.alarms
}

// AvailableCount returns the number of aligned samples.
func (b *Buffer) AvailableCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lengthsLocked().Available()
}

// Lengths returns a snapshot of all four sequence lengths.
func (b *Buffer) Lengths() AxisLengths {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lengthsLocked()
}

func (b *Buffer) lengthsLocked() AxisLengths {
	return AxisLengths{X: len(b.x), Y: len(b.y), Z: len(b.z), T: len(b.t)}
}

// DrainPrefix removes and returns the first n aligned entries of each
// sequence. It fails without modifying the buffer when n exceeds the
// aligned count.
func (b *Buffer) DrainPrefix(n int) (ts []time.Time, xs, ys, zs []float64, err error) {
	if n <= 0 {
		return nil, nil, nil, nil, ErrInvalidCount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if avail := b.lengthsLocked().Available(); n > avail {
		return nil, nil, nil, nil, &InsufficientDataError{Requested: n, Available: avail}
	}
	ts, xs, ys, zs = b.drainLocked(n)
	return ts, xs, ys, zs, nil
}

// TryDrain removes n aligned entries if at least n are available.
func (b *Buffer) TryDrain(n int) (ts []time.Time, xs, ys, zs []float64, ok bool) {
	if n <= 0 {
		return nil, nil, nil, nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lengthsLocked().Available() < n {
		return nil, nil, nil, nil, false
	}
	ts, xs, ys, zs = b.drainLocked(n)
	return ts, xs, ys, zs, true
}

func (b *Buffer) drainLocked(n int) (ts []time.Time, xs, ys, zs []float64) {
	ts = make([]time.Time, n)
	copy(ts, b.t[:n])
	xs = takeFloats(&b.x, n)
	ys = takeFloats(&b.y, n)
	zs = takeFloats(&b.z, n)

	b.t = shiftTimes(b.t, n)

	if b.alarmed && b.lengthsLocked().Longest() < b.highWater {
		b.alarmed = false
	}
	return ts, xs, ys, zs
}

// takeFloats copies the first n values out of *seq and shifts the rest down.
func takeFloats(seq *[]float64, n int) []float64 {
	head := make([]float64, n)
	copy(head, (*seq)[:n])

	rest := len(*seq) - n
	if cap(*seq) > minShrinkCap && rest < cap(*seq)/4 {
		fresh := make([]float64, rest, max(rest*2, 16))
		copy(fresh, (*seq)[n:])
		*seq = fresh
		return head
	}
	*seq = (*seq)[:copy(*seq, (*seq)[n:])]
	return head
}

func shiftTimes(seq []time.Time, n int) []time.Time {
	rest := len(seq) - n
	if cap(seq) > minShrinkCap && rest < cap(seq)/4 {
		fresh := make([]time.Time, rest, max(rest*2, 16))
		copy(fresh, seq[n:])
		return fresh
	}
	return seq[:copy(seq, seq[n:])]
}
