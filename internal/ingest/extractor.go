// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package ingest

import (
	"sync/atomic"
	"time"

	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/models"
)

// Drainer is the part of Buffer the extractor needs.
type Drainer interface {
	TryDrain(n int) (ts []time.Time, xs, ys, zs []float64, ok bool)
}

// Extractor carves fixed-size batches and numbers them in production order.
type Extractor struct {
	seq atomic.Uint64
}

// NewExtractor creates an extractor whose first batch has Seq 1.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// TryExtract removes exactly n aligned samples from src and returns them as
// a batch. When fewer than n are available it returns false and src is left
// untouched.
func (e *Extractor) TryExtract(src Drainer, n int) (models.Batch, bool) {
	if n < 1 {
		return models.Batch{}, false
	}

	ts, xs, ys, zs, ok := src.TryDrain(n)
	if !ok {
		return models.Batch{}, false
	}

	batch, err := models.NewBatchFromColumns(e.seq.Add(1), ts, xs, ys, zs)
	if err != nil {
		// TryDrain always returns equal-length columns.
		logging.Error().Err(err).Int("requested", n).Msg("Drained columns were not aligned")
		return models.Batch{}, false
	}
	return batch, true
}

// Extracted returns the number of batches produced so far.
func (e *Extractor) Extracted() uint64 {
	return e.seq.Load()
}
