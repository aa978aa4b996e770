// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package reconnect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/sensorflow/internal/connector"
	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/metrics"
	"github.com/tomtom215/sensorflow/internal/models"
)

// ErrNoConnector is returned by New when no connector is supplied.
var ErrNoConnector = errors.New("connector is required")

// Appender is where decoded telemetry goes. *ingest.Buffer implements it.
type Appender interface {
	AppendReading(r models.Reading) error
	AppendSample(s models.Sample)
}

// DecodeFunc turns one raw payload into readings and samples.
type DecodeFunc func(payload []byte, receivedAt time.Time) (connector.Payload, error)

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// StateObserver is notified after every state transition.
type StateObserver func(from, to models.ConnectionState, cause error)

// Config holds the supervisor's tunables.
type Config struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// MalformedLogRate limits malformed-payload warnings per second.
	MalformedLogRate  rate.Limit
	MalformedLogBurst int
}

// DefaultConfig matches the documented defaults: 1s initial, 60s cap.
func DefaultConfig() Config {
	return Config{
		InitialBackoff:    time.Second,
		MaxBackoff:        60 * time.Second,
		MalformedLogRate:  1,
		MalformedLogBurst: 5,
	}
}

// Stats are cumulative counters since the supervisor was created.
type Stats struct {
	State          string              `json:"state"`
	Backoff        models.BackoffState `json:"backoff"`
	Readings       uint64              `json:"readings"`
	Samples        uint64              `json:"samples"`
	Malformed      uint64              `json:"malformed"`
	Rejected       uint64              `json:"rejected"`
	Failures       uint64              `json:"failures"`
	Sessions       uint64              `json:"sessions"`
	LastError      string              `json:"last_error,omitempty"`
	StreamingSince *time.Time          `json:"streaming_since,omitempty"`
}

// Option customises a Supervisor.
type Option func(*Supervisor)

// WithSleeper replaces the backoff sleep. Tests use it to record delays.
func WithSleeper(fn SleepFunc) Option {
	return func(s *Supervisor) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithDecoder replaces connector.Decode.
func WithDecoder(fn DecodeFunc) Option {
	return func(s *Supervisor) {
		if fn != nil {
			s.decode = fn
		}
	}
}

// WithObserver registers a state observer.
func WithObserver(fn StateObserver) Option {
	return func(s *Supervisor) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// WithClock overrides the arrival-time source.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) {
		if now != nil {
			s.now = now
		}
	}
}

// Supervisor owns the connection lifecycle and feeds the ingest buffer.
type Supervisor struct {
	conn      connector.Connector
	sink      Appender
	backoff   *Backoff
	decode    DecodeFunc
	sleep     SleepFunc
	now       func() time.Time
	observers []StateObserver
	limiter   *rate.Limiter
	log       zerolog.Logger

	state atomic.Int32

	readings  atomic.Uint64
	samples   atomic.Uint64
	malformed atomic.Uint64
	rejected  atomic.Uint64
	failures  atomic.Uint64
	sessions  atomic.Uint64
	// suppressed counts malformed warnings skipped by the limiter.
	suppressed atomic.Uint64

	mu             sync.Mutex
	lastErr        error
	streamingSince time.Time
}

// New creates a supervisor in the Disconnected state.
func New(conn connector.Connector, sink Appender, cfg Config, opts ...Option) (*Supervisor, error) {
	if conn == nil {
		return nil, ErrNoConnector
	}
	if sink == nil {
		return nil, errors.New("appender is required")
	}
	defaults := DefaultConfig()
	if cfg.MalformedLogRate <= 0 {
		cfg.MalformedLogRate = defaults.MalformedLogRate
	}
	if cfg.MalformedLogBurst <= 0 {
		cfg.MalformedLogBurst = defaults.MalformedLogBurst
	}

	s := &Supervisor{
		conn:    conn,
		sink:    sink,
		backoff: NewBackoff(cfg.InitialBackoff, cfg.MaxBackoff),
		decode:  connector.Decode,
		sleep:   sleepContext,
		now:     time.Now,
		limiter: rate.NewLimiter(cfg.MalformedLogRate, cfg.MalformedLogBurst),
		log:     logging.WithComponent("reconnect").With().Str("connector", conn.String()).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(models.StateDisconnected))
	return s, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the state machine until ctx is cancelled. It always returns a
// non-nil error: ctx.Err() on cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.shutdown()

	cause := errors.New("startup")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sessionCtx := logging.ContextWithNewCorrelationID(ctx)
		s.transition(sessionCtx, models.StateConnecting, cause)

		err := s.conn.Connect(sessionCtx)
		if err == nil {
			s.sessions.Add(1)
			s.backoff.Reset()
			s.transition(sessionCtx, models.StateStreaming, nil)

			err = s.conn.Stream(sessionCtx, s.deliver)
			if err == nil {
				err = connector.ErrStreamClosed
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.failures.Add(1)
		s.setLastError(err)
		s.transition(sessionCtx, models.StateFailed, err)

		if closeErr := s.conn.Close(); closeErr != nil {
			logging.Ctx(sessionCtx).Debug().Err(closeErr).Msg("Closing failed session")
		}

		delay := s.backoff.Next()
		logging.Ctx(sessionCtx).Info().Dur("delay", delay).Msg("Waiting before reconnect")
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
		metrics.RecordReconnectAttempt(delay)
		cause = fmt.Errorf("retry after %s: %w", delay, err)
	}
}

// Serve implements suture.Service.
func (s *Supervisor) Serve(ctx context.Context) error {
	return s.Run(ctx)
}

func (s *Supervisor) String() string {
	return "reconnect-supervisor(" + s.conn.String() + ")"
}

func (s *Supervisor) shutdown() {
	if err := s.conn.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Closing connector on shutdown")
	}
	s.transition(context.Background(), models.StateDisconnected, context.Canceled)
}

func (s *Supervisor) transition(ctx context.Context, to models.ConnectionState, cause error) {
	from := models.ConnectionState(s.state.Swap(int32(to)))

	s.mu.Lock()
	if to == models.StateStreaming {
		s.streamingSince = s.now()
	} else {
		s.streamingSince = time.Time{}
	}
	s.mu.Unlock()

	event := s.log.Info()
	if to == models.StateFailed {
		event = s.log.Warn()
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		event = event.Str("correlation_id", id)
	}
	if cause != nil {
		event = event.AnErr("cause", cause)
	}
	event.Str("from", from.String()).Str("to", to.String()).Msg("Connection state transition")

	metrics.RecordStateTransition(from.String(), to.String(), int(to))

	for _, obs := range s.observers {
		obs(from, to, cause)
	}
}

// deliver is the connector's payload callback.
func (s *Supervisor) deliver(payload []byte) {
	p, err := s.decode(payload, s.now())
	if err != nil {
		s.dropMalformed(payload, err)
		return
	}

	for _, r := range p.Readings {
		if err := s.sink.AppendReading(r); err != nil {
			s.rejected.Add(1)
			s.log.Warn().Err(err).Msg("Reading rejected by buffer")
			continue
		}
		s.readings.Add(1)
		metrics.RecordReading(r.Axis.String())
	}
	for _, sample := range p.Samples {
		s.sink.AppendSample(sample)
		s.samples.Add(1)
		for _, axis := range models.Axes {
			metrics.RecordReading(axis.String())
		}
	}
}

func (s *Supervisor) dropMalformed(payload []byte, err error) {
	s.malformed.Add(1)
	metrics.RecordMalformedPayload(s.conn.String())

	if !s.limiter.Allow() {
		s.suppressed.Add(1)
		return
	}

	const maxPreview = 128
	preview := payload
	if len(preview) > maxPreview {
		preview = preview[:maxPreview]
	}
	s.log.Warn().
		Err(err).
		Bytes("payload", preview).
		Uint64("suppressed", s.suppressed.Swap(0)).
		Msg("Dropped malformed payload")
}

func (s *Supervisor) setLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// State returns the current connection state.
func (s *Supervisor) State() models.ConnectionState {
	return models.ConnectionState(s.state.Load())
}

// Backoff returns the delay the next failure would wait.
func (s *Supervisor) Backoff() models.BackoffState {
	return s.backoff.State()
}

// Stats returns a snapshot of the supervisor's counters.
func (s *Supervisor) Stats() Stats {
	st := Stats{
		State:     s.State().String(),
		Backoff:   s.backoff.State(),
		Readings:  s.readings.Load(),
		Samples:   s.samples.Load(),
		Malformed: s.malformed.Load(),
		Rejected:  s.rejected.Load(),
		Failures:  s.failures.Load(),
		Sessions:  s.sessions.Load(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if !s.streamingSince.IsZero() {
		since := s.streamingSince
		st.StreamingSince = &since
	}
	return st
}
