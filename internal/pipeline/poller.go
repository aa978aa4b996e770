// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/tomtom215/sensorflow/internal/ingest"
	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/metrics"
	"github.com/tomtom215/sensorflow/internal/models"
	"github.com/tomtom215/sensorflow/internal/websocket"
)

// Source is the intake buffer as seen by the poller.
type Source interface {
	ingest.Drainer
	Lengths() ingest.AxisLengths
}

// Submitter accepts finished batches. *dispatch.Dispatcher satisfies it.
type Submitter interface {
	Submit(ctx context.Context, batch models.Batch) error
	Finish()
}

// StatusBroadcaster receives buffer status updates. *websocket.Hub
// satisfies it.
type StatusBroadcaster interface {
	BroadcastStatus(status websocket.BufferStatus)
}

// Config configures the poller.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

// DefaultConfig returns batches of 1000 samples polled every second.
func DefaultConfig() Config {
	return Config{BatchSize: 1000, PollInterval: time.Second}
}

// Stats is a snapshot of poller counters.
type Stats struct {
	Polls     uint64    `json:"polls"`
	Batches   uint64    `json:"batches"`
	Rejected  uint64    `json:"rejected"`
	BatchSize int       `json:"batch_size"`
	Interval  string    `json:"poll_interval"`
	LastPoll  time.Time `json:"last_poll"`
}

// Option configures a Poller.
type Option func(*Poller)

// WithStatus sends a buffer status update after every poll.
func WithStatus(b StatusBroadcaster) Option {
	return func(p *Poller) { p.status = b }
}

// WithStateFunc reports the connection state in status updates.
func WithStateFunc(fn func() models.ConnectionState) Option {
	return func(p *Poller) { p.state = fn }
}

// WithAlarms watches a high-water alarm channel.
func WithAlarms(alarms <-chan int) Option {
	return func(p *Poller) { p.alarms = alarms }
}

// Poller is the periodic consumer loop.
type Poller struct {
	src       Source
	extractor *ingest.Extractor
	out       Submitter
	status    StatusBroadcaster
	state     func() models.ConnectionState
	alarms    <-chan int
	cfg       Config

	polls    atomic.Uint64
	batches  atomic.Uint64
	rejected atomic.Uint64
	lastPoll atomic.Int64
}

// NewPoller creates a poller draining src into out.
func NewPoller(src Source, extractor *ingest.Extractor, out Submitter, cfg Config, opts ...Option) *Poller {
	def := DefaultConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if extractor == nil {
		extractor = ingest.NewExtractor()
	}

	p := &Poller{src: src, extractor: extractor, out: out, cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll extracts every full batch currently available and submits each one.
// It returns the number of batches extracted. ctx bounds inline dispatch.
func (p *Poller) Poll(ctx context.Context) int {
	p.polls.Add(1)
	p.lastPoll.Store(time.Now().UnixNano())

	n := 0
	for {
		batch, ok := p.extractor.TryExtract(p.src, p.cfg.BatchSize)
		if !ok {
			break
		}
		n++
		p.batches.Add(1)
		metrics.RecordBatchExtracted(batch.Len())

		if err := p.out.Submit(ctx, batch); err != nil && !errors.Is(err, context.Canceled) {
			// The dispatcher already logged and counted it.
			p.rejected.Add(1)
		}
	}

	lengths := p.src.Lengths()
	available := lengths.Available()
	metrics.UpdateBufferGauges(lengths.X, lengths.Y, lengths.Z, lengths.T, available)

	if n > 1 {
		logging.Debug().Int("batches", n).Int("remaining", available).Msg("Caught up on buffered samples")
	}

	if p.status != nil {
		state := models.StateDisconnected
		if p.state != nil {
			state = p.state()
		}
		p.status.BroadcastStatus(websocket.BufferStatus{
			Available: available,
			BatchSize: p.cfg.BatchSize,
			X:         lengths.X,
			Y:         lengths.Y,
			Z:         lengths.Z,
			T:         lengths.T,
			State:     state.String(),
		})
	}
	return n
}

// Serve polls on every tick until ctx ends, then makes a final pass over
// fully aligned samples and tells the submitter no more batches follow.
// A trailing partial batch stays in the buffer.
func (p *Poller) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	logging.Info().
		Int("batch_size", p.cfg.BatchSize).
		Dur("poll_interval", p.cfg.PollInterval).
		Msg("Poller started")

	for {
		select {
		case <-ctx.Done():
			// The final pass must still reach the sinks.
			n := p.Poll(context.WithoutCancel(ctx))
			p.out.Finish()
			logging.Info().
				Int("final_batches", n).
				Int("left_in_buffer", p.src.Lengths().Available()).
				Msg("Poller stopped")
			return ctx.Err()

		case <-ticker.C:
			p.Poll(ctx)

		case backlog := <-p.alarms:
			metrics.RecordHighWaterAlarm()
			logging.Warn().
				Int("backlog", backlog).
				Int("batch_size", p.cfg.BatchSize).
				Msg("Intake buffer crossed its high-water mark")
		}
	}
}

func (p *Poller) String() string {
	return "poller"
}

// Stats returns a snapshot of the counters.
func (p *Poller) Stats() Stats {
	s := Stats{
		Polls:     p.polls.Load(),
		Batches:   p.batches.Load(),
		Rejected:  p.rejected.Load(),
		BatchSize: p.cfg.BatchSize,
		Interval:  p.cfg.PollInterval.String(),
	}
	if ns := p.lastPoll.Load(); ns != 0 {
		s.LastPoll = time.Unix(0, ns).UTC()
	}
	return s
}
