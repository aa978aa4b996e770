// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package sink

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/metrics"
	"github.com/tomtom215/sensorflow/internal/models"
)

// BreakerConfig configures the circuit breaker around a single sink.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig trips after 5 consecutive failures and probes again
// after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerSink guards one sink with its own circuit breaker, so an
// unreachable sink fails fast without affecting its siblings in a Fanout.
type BreakerSink struct {
	next    Sink
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// WithBreaker wraps s. Zero fields in cfg take the defaults.
func WithBreaker(s Sink, cfg BreakerConfig) *BreakerSink {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &BreakerSink{next: s, breaker: newBreaker(s.Name(), cfg)}
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Shutdown cancellation says nothing about sink health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), int(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// Write passes batch to the wrapped sink unless the breaker is open, in
// which case it returns gobreaker.ErrOpenState without calling it.
func (b *BreakerSink) Write(ctx context.Context, batch models.Batch) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Write(ctx, batch)
	})
	return err
}

func (b *BreakerSink) Close() error {
	return b.next.Close()
}

func (b *BreakerSink) Name() string {
	return b.next.Name()
}

// BreakerState reports the breaker state.
func (b *BreakerSink) BreakerState() gobreaker.State {
	return b.breaker.State()
}

// Unwrap returns the guarded sink.
func (b *BreakerSink) Unwrap() Sink {
	return b.next
}
