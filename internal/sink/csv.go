// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/models"
)

// CSVHeader is the column layout of every exported file.
var CSVHeader = []string{"Timestamp", "Accel_X", "Accel_Y", "Accel_Z"}

const csvNameLayout = "20060102_150405"

// CSVSink writes one file per batch into a directory.
type CSVSink struct {
	dir string

	mu     sync.Mutex
	closed bool
}

// NewCSVSink creates dir if needed.
func NewCSVSink(dir string) (*CSVSink, error) {
	if dir == "" {
		return nil, errors.New("csv directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create csv directory: %w", err)
	}
	return &CSVSink{dir: dir}, nil
}

// maxNameAttempts bounds the search for a free file name.
const maxNameAttempts = 1000

// FileName returns the base name for a batch: activity_YYYYMMDD_HHMMSS.csv
// from the batch's last sample, in UTC.
func FileName(batch models.Batch) string {
	return "activity_" + batch.Last().UTC().Format(csvNameLayout) + ".csv"
}

// Write stores batch as a CSV file. The file appears atomically: it is
// written under a temporary name and renamed into place.
func (s *CSVSink) Write(ctx context.Context, batch models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.targetPath(batch)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".activity-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := writeCSV(bw, batch); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename csv: %w", err)
	}
	tmpName = ""

	logging.Debug().Str("file", target).Uint64("seq", batch.Seq()).Msg("Batch written to CSV")
	return nil
}

// targetPath picks a file name that does not exist yet. A clash on the
// timestamp name adds the batch sequence. Sequences restart with the process,
// so a clash on that too adds a counter until the name is free.
func (s *CSVSink) targetPath(batch models.Batch) (string, error) {
	base := FileName(batch)
	stem := base[:len(base)-len(".csv")]

	for n := 0; n < maxNameAttempts; n++ {
		name := base
		switch n {
		case 0:
		case 1:
			name = stem + "_" + strconv.FormatUint(batch.Seq(), 10) + ".csv"
		default:
			name = stem + "_" + strconv.FormatUint(batch.Seq(), 10) + "_" + strconv.Itoa(n) + ".csv"
		}
		target := filepath.Join(s.dir, name)

		_, err := os.Stat(target)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return target, nil
		case err != nil:
			return "", fmt.Errorf("stat %s: %w", target, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s after %d attempts", base, maxNameAttempts)
}

func writeCSV(w *bufio.Writer, batch models.Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, 4)
	for i := 0; i < batch.Len(); i++ {
		s := batch.At(i)
		row[0] = s.Timestamp.UTC().Format(time.RFC3339Nano)
		row[1] = strconv.FormatFloat(s.X, 'f', -1, 64)
		row[2] = strconv.FormatFloat(s.Y, 'f', -1, 64)
		row[3] = strconv.FormatFloat(s.Z, 'f', -1, 64)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Close marks the sink closed.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *CSVSink) Name() string {
	return "csv"
}
