// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/sensorflow/internal/metrics"
	"github.com/tomtom215/sensorflow/internal/models"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("sink closed")

// Sink persists batches.
type Sink interface {
	Write(ctx context.Context, batch models.Batch) error
	Close() error
	Name() string
}

// Fanout writes every batch to all of its sinks in order. A failing sink does
// not stop the others.
type Fanout struct {
	sinks []Sink
}

// NewFanout returns a fan-out over sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Len returns the number of sinks.
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Names lists the wrapped sinks.
func (f *Fanout) Names() []string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	return names
}

// Write writes batch to each sink and joins the failures.
func (f *Fanout) Write(ctx context.Context, batch models.Batch) error {
	var errs []error
	for _, s := range f.sinks {
		start := time.Now()
		err := s.Write(ctx, batch)
		metrics.RecordSinkWrite(s.Name(), time.Since(start), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Name() string {
	return "fanout"
}

// BreakerStates reports the breaker state of every guarded sink by name.
// Unguarded sinks are left out.
func (f *Fanout) BreakerStates() map[string]string {
	states := make(map[string]string)
	for _, s := range f.sinks {
		if b, ok := s.(*BreakerSink); ok {
			states[b.Name()] = b.BreakerState().String()
		}
	}
	return states
}
