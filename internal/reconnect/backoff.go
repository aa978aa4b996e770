// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package reconnect

import (
	"sync"
	"time"

	"github.com/tomtom215/sensorflow/internal/models"
)

// Backoff is a capped doubling delay. The k-th consecutive call to Next
// (starting at 0) returns min(initial*2^k, max).
type Backoff struct {
	mu      sync.Mutex
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff returns a backoff starting at initial. A max below initial is
// raised to initial.
func NewBackoff(initial, maxDelay time.Duration) *Backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if maxDelay < initial {
		maxDelay = initial
	}
	return &Backoff{initial: initial, max: maxDelay, current: initial}
}

// Next returns the delay to wait now and advances to the following one.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.current
	if b.current >= b.max/2 {
		b.current = b.max
	} else {
		b.current *= 2
	}
	return d
}

// Reset restores the initial delay.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
}

// State returns the delay the next failure would wait.
func (b *Backoff) State() models.BackoffState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return models.BackoffState{Current: b.current, Max: b.max}
}
