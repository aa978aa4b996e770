// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package sink

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/models"
)

const duckdbSchema = `
CREATE TABLE IF NOT EXISTS sensor_batches (
	batch_id   VARCHAR PRIMARY KEY,
	batch_seq  UBIGINT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	first_ts   TIMESTAMP,
	last_ts    TIMESTAMP,
	size       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sensor_samples (
	batch_id  VARCHAR NOT NULL,
	batch_seq UBIGINT NOT NULL,
	idx       INTEGER NOT NULL,
	ts        TIMESTAMP NOT NULL,
	x         DOUBLE NOT NULL,
	y         DOUBLE NOT NULL,
	z         DOUBLE NOT NULL
);`

// DuckDBSink stores batches as rows in DuckDB.
type DuckDBSink struct {
	db *sql.DB

	mu     sync.Mutex
	closed bool
}

// DuckDBSummary aggregates what the sink holds.
type DuckDBSummary struct {
	Batches int64   `json:"batches"`
	Samples int64   `json:"samples"`
	MeanX   float64 `json:"mean_x"`
	MeanY   float64 `json:"mean_y"`
	MeanZ   float64 `json:"mean_z"`
}

// OpenDuckDB opens (or creates) the database at path; an empty path or
// ":memory:" keeps it in memory.
func OpenDuckDB(ctx context.Context, path string) (*DuckDBSink, error) {
	if path == ":memory:" {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	if _, err := db.ExecContext(ctx, duckdbSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create duckdb schema: %w", err)
	}

	logging.Info().Str("path", displayPath(path)).Msg("DuckDB sink opened")
	return &DuckDBSink{db: db}, nil
}

func displayPath(path string) string {
	if path == "" {
		return ":memory:"
	}
	return path
}

// Write inserts the batch header and all samples in one transaction.
func (s *DuckDBSink) Write(ctx context.Context, batch models.Batch) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id := batch.ID().String()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO sensor_batches (batch_id, batch_seq, created_at, first_ts, last_ts, size) VALUES (?, ?, ?, ?, ?, ?)`,
		id, batch.Seq(), batch.CreatedAt().UTC(), batch.First().UTC(), batch.Last().UTC(), batch.Len(),
	); err != nil {
		return fmt.Errorf("insert batch %d: %w", batch.Seq(), err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sensor_samples (batch_id, batch_seq, idx, ts, x, y, z) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < batch.Len(); i++ {
		smp := batch.At(i)
		if _, err = stmt.ExecContext(ctx, id, batch.Seq(), i, smp.Timestamp.UTC(), smp.X, smp.Y, smp.Z); err != nil {
			return fmt.Errorf("insert sample %d of batch %d: %w", i, batch.Seq(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch %d: %w", batch.Seq(), err)
	}
	return nil
}

// Summary returns row counts and per-axis means.
func (s *DuckDBSink) Summary(ctx context.Context) (DuckDBSummary, error) {
	var out DuckDBSummary
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensor_batches`).Scan(&out.Batches); err != nil {
		return out, fmt.Errorf("count batches: %w", err)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(x), 0), COALESCE(AVG(y), 0), COALESCE(AVG(z), 0) FROM sensor_samples`)
	if err := row.Scan(&out.Samples, &out.MeanX, &out.MeanY, &out.MeanZ); err != nil {
		return out, fmt.Errorf("summarize samples: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *DuckDBSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close duckdb: %w", err)
	}
	return nil
}

func (s *DuckDBSink) Name() string {
	return "duckdb"
}
