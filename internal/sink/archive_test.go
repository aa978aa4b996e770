// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package sink

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openTestArchive(t *testing.T, path string) *ArchiveSink {
	t.Helper()
	a, err := OpenArchive(ArchiveConfig{Path: path, CloseTimeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchive_GetRoundTrip(t *testing.T) {
	a := openTestArchive(t, "")
	want := testBatch(42, 250)
	if err := a.Write(context.Background(), want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := a.Get(42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID() != want.ID() || got.Seq() != 42 || got.Len() != 250 {
		t.Fatalf("Get() = id %s seq %d len %d", got.ID(), got.Seq(), got.Len())
	}
	g, w := got.At(249), want.At(249)
	if !g.Timestamp.Equal(w.Timestamp) || g.X != w.X || g.Y != w.Y || g.Z != w.Z {
		t.Errorf("last sample = %+v, want %+v", g, w)
	}

	if _, err := a.Get(43); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("Get(43) error = %v, want ErrBatchNotFound", err)
	}
}

func TestArchive_RangeAndLatest(t *testing.T) {
	a := openTestArchive(t, "")

	latest, err := a.LatestSeq()
	if err != nil || latest != 0 {
		t.Fatalf("LatestSeq() on empty = %d, %v", latest, err)
	}

	// Keys are zero-padded so 9 sorts before 10.
	for _, seq := range []uint64{9, 10, 11, 100} {
		if err := a.Write(context.Background(), testBatch(seq, 1)); err != nil {
			t.Fatalf("Write(%d): %v", seq, err)
		}
	}

	got, err := a.Range(10, 2)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(got) != 2 || got[0].Seq() != 10 || got[1].Seq() != 11 {
		t.Errorf("Range(10, 2) returned %d batches", len(got))
	}

	if got, _ := a.Range(0, 0); got != nil {
		t.Errorf("Range with zero limit = %v", got)
	}

	latest, err = a.LatestSeq()
	if err != nil || latest != 100 {
		t.Errorf("LatestSeq() = %d, %v, want 100", latest, err)
	}
}

func TestArchive_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	a, err := OpenArchive(ArchiveConfig{Path: dir, SyncWrites: true})
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	if err := a.Write(context.Background(), testBatch(3, 10)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := a.RunGC(); err != nil {
		t.Fatalf("RunGC: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Write(context.Background(), testBatch(4, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}

	b := openTestArchive(t, dir)
	got, err := b.Get(3)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Len() != 10 {
		t.Errorf("Len() = %d, want 10", got.Len())
	}
}

func TestCompactor_StopsOnCancel(t *testing.T) {
	a := openTestArchive(t, t.TempDir())
	c := NewCompactor(a, 5*time.Millisecond)
	if c.String() != "archive-compactor" {
		t.Errorf("String() = %s", c.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("compactor did not stop")
	}
}
