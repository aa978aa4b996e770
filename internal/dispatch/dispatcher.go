// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/metrics"
	"github.com/tomtom215/sensorflow/internal/models"
)

var (
	// ErrQueueFull is returned by Submit when the async queue has no room.
	ErrQueueFull = errors.New("dispatch queue full")

	// ErrFinished is returned by Submit after Finish.
	ErrFinished = errors.New("dispatcher finished")
)

// Writer is the persistence side of a dispatch. sink.Sink and sink.Fanout
// satisfy it.
type Writer interface {
	Write(ctx context.Context, batch models.Batch) error
	Name() string
}

// Renderer receives every batch for live display. Render must not block.
type Renderer interface {
	Render(batch models.Batch)
}

// breakerReporter is implemented by writers that guard their sinks with
// circuit breakers, such as sink.Fanout.
type breakerReporter interface {
	BreakerStates() map[string]string
}

// Config configures a Dispatcher.
type Config struct {
	Async        bool
	QueueSize    int
	DrainTimeout time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns async dispatch with a queue of 16 batches.
func DefaultConfig() Config {
	return Config{
		Async:        true,
		QueueSize:    16,
		DrainTimeout: 10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Submitted  uint64 `json:"submitted"`
	Dispatched uint64 `json:"dispatched"`
	Failed     uint64 `json:"failed"`
	Dropped    uint64 `json:"dropped"`
	QueueDepth int    `json:"queue_depth"`
	QueueSize  int    `json:"queue_size"`
	Async      bool   `json:"async"`
	LastSeq    uint64 `json:"last_seq"`

	// Breakers maps each guarded sink to its breaker state.
	Breakers map[string]string `json:"breakers,omitempty"`
}

// Dispatcher routes batches to a Writer and a Renderer.
type Dispatcher struct {
	writer   Writer
	renderer Renderer
	cfg      Config

	queue    chan models.Batch
	finished chan struct{}
	finish   sync.Once

	submitted  atomic.Uint64
	dispatched atomic.Uint64
	failed     atomic.Uint64
	dropped    atomic.Uint64
	lastSeq    atomic.Uint64
}

// New creates a dispatcher. Either writer or renderer may be nil.
func New(writer Writer, renderer Renderer, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	return &Dispatcher{
		writer:   writer,
		renderer: renderer,
		cfg:      cfg,
		queue:    make(chan models.Batch, cfg.QueueSize),
		finished: make(chan struct{}),
	}
}

// Dispatch renders batch and then writes it. The write error, if any, is
// returned after being logged; the batch is not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, batch models.Batch) error {
	d.lastSeq.Store(batch.Seq())

	if d.renderer != nil {
		d.renderer.Render(batch)
	}
	if d.writer == nil {
		d.dispatched.Add(1)
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, d.cfg.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := d.writer.Write(writeCtx, batch)
	metrics.RecordDispatch(time.Since(start), err)

	if err != nil {
		d.failed.Add(1)
		logging.Error().
			Err(err).
			Uint64("seq", batch.Seq()).
			Str("batch_id", batch.ID().String()).
			Int("size", batch.Len()).
			Str("sink", d.writer.Name()).
			Msg("Batch dispatch failed, batch dropped")
		return fmt.Errorf("dispatch batch %d: %w", batch.Seq(), err)
	}

	d.dispatched.Add(1)
	logging.Debug().
		Uint64("seq", batch.Seq()).
		Int("size", batch.Len()).
		Dur("duration", time.Since(start)).
		Msg("Batch dispatched")
	return nil
}

// Submit hands batch to the worker without blocking. In sync mode it
// dispatches inline under ctx, so cancelling ctx cuts a hung write short.
// The async path never blocks and ignores ctx.
func (d *Dispatcher) Submit(ctx context.Context, batch models.Batch) error {
	select {
	case <-d.finished:
		d.drop(batch, "dispatcher finished")
		return ErrFinished
	default:
	}

	d.submitted.Add(1)
	if !d.cfg.Async {
		return d.Dispatch(ctx, batch)
	}

	select {
	case d.queue <- batch:
		metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		d.drop(batch, "queue full")
		return ErrQueueFull
	}
}

func (d *Dispatcher) drop(batch models.Batch, reason string) {
	d.dropped.Add(1)
	metrics.RecordDispatchDropped()
	logging.Error().
		Uint64("seq", batch.Seq()).
		Int("size", batch.Len()).
		Str("reason", reason).
		Msg("Batch dropped before dispatch")
}

// Finish tells Run that no more batches will be submitted. Safe to call
// more than once.
func (d *Dispatcher) Finish() {
	d.finish.Do(func() { close(d.finished) })
}

// Run drains the queue until ctx ends, then keeps draining until Finish is
// called and the queue is empty, or the drain timeout expires.
//
// Batches still queued at cancellation are written under the drain context,
// never under the cancelled one.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		// Shutdown takes priority over the queue.
		select {
		case <-ctx.Done():
			d.drain()
			return ctx.Err()
		default:
		}

		select {
		case batch := <-d.queue:
			metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
			if ctx.Err() != nil {
				d.drain(batch)
				return ctx.Err()
			}
			_ = d.Dispatch(ctx, batch)
		case <-ctx.Done():
			d.drain()
			return ctx.Err()
		}
	}
}

// drain dispatches pending first, then the queue, under a fresh context
// bounded by the drain timeout.
func (d *Dispatcher) drain(pending ...models.Batch) {
	drainCtx, cancel := context.WithTimeout(context.Background(), d.cfg.DrainTimeout)
	defer cancel()

	for _, batch := range pending {
		_ = d.Dispatch(drainCtx, batch)
	}

	finished := d.finished
	for {
		select {
		case batch := <-d.queue:
			metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
			_ = d.Dispatch(drainCtx, batch)
			continue
		default:
		}

		if finished == nil {
			return
		}

		select {
		case batch := <-d.queue:
			metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
			_ = d.Dispatch(drainCtx, batch)
		case <-finished:
			// Empty the queue once more, then stop.
			finished = nil
		case <-drainCtx.Done():
			if n := len(d.queue); n > 0 {
				logging.Warn().Int("abandoned", n).Msg("Dispatch drain timed out")
			}
			return
		}
	}
}

// Serve implements suture.Service.
func (d *Dispatcher) Serve(ctx context.Context) error {
	return d.Run(ctx)
}

func (d *Dispatcher) String() string {
	return "dispatcher"
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	s := Stats{
		Submitted:  d.submitted.Load(),
		Dispatched: d.dispatched.Load(),
		Failed:     d.failed.Load(),
		Dropped:    d.dropped.Load(),
		QueueDepth: len(d.queue),
		QueueSize:  cap(d.queue),
		Async:      d.cfg.Async,
		LastSeq:    d.lastSeq.Load(),
	}
	if r, ok := d.writer.(breakerReporter); ok {
		s.Breakers = r.BreakerStates()
	}
	return s
}
