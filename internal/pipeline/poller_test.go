// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/sensorflow/internal/ingest"
	"github.com/tomtom215/sensorflow/internal/metrics"
	"github.com/tomtom215/sensorflow/internal/models"
	"github.com/tomtom215/sensorflow/internal/websocket"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	batches  []models.Batch
	finished bool

	// cancellable counts submits whose ctx can be cancelled; dead counts
	// submits whose ctx was already done.
	cancellable int
	dead        int
}

func (f *fakeSubmitter) Submit(ctx context.Context, b models.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, b)
	if ctx.Done() != nil {
		f.cancellable++
	}
	if ctx.Err() != nil {
		f.dead++
	}
	return nil
}

func (f *fakeSubmitter) Finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = true
}

func (f *fakeSubmitter) snapshot() ([]models.Batch, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Batch(nil), f.batches...), f.finished
}

type fakeStatus struct {
	mu       sync.Mutex
	statuses []websocket.BufferStatus
}

func (f *fakeStatus) BroadcastStatus(s websocket.BufferStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, s)
}

func (f *fakeStatus) last() (websocket.BufferStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return websocket.BufferStatus{}, false
	}
	return f.statuses[len(f.statuses)-1], true
}

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func feed(buf *ingest.Buffer, start, count int) {
	for i := start; i < start+count; i++ {
		buf.AppendSample(models.Sample{
			Timestamp: epoch.Add(time.Duration(i) * 10 * time.Millisecond),
			X:         float64(i),
			Y:         float64(i),
			Z:         float64(i),
		})
	}
}

func TestPoller_CatchesUpOnBacklog(t *testing.T) {
	buf := ingest.NewBuffer()
	feed(buf, 0, 2500)

	out := &fakeSubmitter{}
	status := &fakeStatus{}
	p := NewPoller(buf, nil, out, Config{BatchSize: 1000, PollInterval: time.Hour},
		WithStatus(status),
		WithStateFunc(func() models.ConnectionState { return models.StateStreaming }))

	before := testutil.ToFloat64(metrics.BatchesExtracted)
	if n := p.Poll(context.Background()); n != 2 {
		t.Fatalf("Poll() = %d batches, want 2", n)
	}

	batches, _ := out.snapshot()
	if len(batches) != 2 {
		t.Fatalf("submitted %d batches, want 2", len(batches))
	}
	for i, b := range batches {
		if b.Seq() != uint64(i+1) || b.Len() != 1000 {
			t.Errorf("batch %d: seq %d len %d", i, b.Seq(), b.Len())
		}
		// FIFO: first sample of batch i is sample i*1000.
		if b.At(0).X != float64(i*1000) {
			t.Errorf("batch %d starts at %v", i, b.At(0).X)
		}
	}
	if buf.AvailableCount() != 500 {
		t.Errorf("remaining = %d, want 500", buf.AvailableCount())
	}
	if got := testutil.ToFloat64(metrics.BatchesExtracted) - before; got != 2 {
		t.Errorf("batches metric delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.BufferAvailable); got != 500 {
		t.Errorf("available gauge = %v, want 500", got)
	}

	s, ok := status.last()
	if !ok {
		t.Fatal("no status broadcast")
	}
	if s.Available != 500 || s.BatchSize != 1000 || s.State != "streaming" {
		t.Errorf("status = %+v", s)
	}

	if st := p.Stats(); st.Polls != 1 || st.Batches != 2 || st.LastPoll.IsZero() {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestPoller_LaggingAxisLimitsBatches(t *testing.T) {
	buf := ingest.NewBuffer()
	for i := 0; i < 20; i++ {
		ts := epoch.Add(time.Duration(i) * time.Millisecond)
		_ = buf.Append(models.AxisX, float64(i), ts)
		_ = buf.Append(models.AxisZ, float64(i), ts)
		if i < 15 {
			_ = buf.Append(models.AxisY, float64(i), ts)
		}
	}

	out := &fakeSubmitter{}
	p := NewPoller(buf, nil, out, Config{BatchSize: 10, PollInterval: time.Hour})
	if n := p.Poll(context.Background()); n != 1 {
		t.Fatalf("Poll() = %d, want 1", n)
	}
	if buf.AvailableCount() != 5 {
		t.Errorf("remaining aligned = %d, want 5", buf.AvailableCount())
	}

	// y catches up; the next poll finds the second batch.
	for i := 15; i < 20; i++ {
		_ = buf.Append(models.AxisY, float64(i), time.Time{})
	}
	if n := p.Poll(context.Background()); n != 1 {
		t.Fatalf("second Poll() = %d, want 1", n)
	}
	batches, _ := out.snapshot()
	if got := batches[1].At(9).Y; got != 19 {
		t.Errorf("last y of second batch = %v, want 19", got)
	}
}

func TestPoller_ServeTicks(t *testing.T) {
	buf := ingest.NewBuffer()
	out := &fakeSubmitter{}
	p := NewPoller(buf, nil, out, Config{BatchSize: 5, PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Serve(ctx) }()

	feed(buf, 0, 12)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if b, _ := out.snapshot(); len(b) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if b, _ := out.snapshot(); len(b) != 2 {
		t.Fatalf("got %d batches from ticking poller, want 2", len(b))
	}
	out.mu.Lock()
	cancellable := out.cancellable
	out.mu.Unlock()
	if cancellable != 2 {
		t.Errorf("%d of 2 submits carried the serve context", cancellable)
	}
	if p.String() != "poller" {
		t.Errorf("String() = %s", p.String())
	}
}

func TestPoller_FinalPassOnShutdown(t *testing.T) {
	buf := ingest.NewBuffer()
	feed(buf, 0, 1500)

	out := &fakeSubmitter{}
	p := NewPoller(buf, nil, out, Config{BatchSize: 1000, PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}

	batches, finished := out.snapshot()
	if len(batches) != 1 || !finished {
		t.Fatalf("final pass: %d batches, finished=%v; want 1, true", len(batches), finished)
	}
	if out.dead != 0 {
		t.Errorf("final pass submitted %d batches under a cancelled context", out.dead)
	}
	// Partial batch is never flushed.
	if buf.AvailableCount() != 500 {
		t.Errorf("remaining = %d, want 500", buf.AvailableCount())
	}
}

func TestPoller_HighWaterAlarm(t *testing.T) {
	buf := ingest.NewBuffer(ingest.WithHighWaterMark(50))
	out := &fakeSubmitter{}
	p := NewPoller(buf, nil, out, Config{BatchSize: 1000, PollInterval: time.Hour},
		WithAlarms(buf.Alarms()))

	before := testutil.ToFloat64(metrics.BufferHighWaterAlarms)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Serve(ctx) }()

	feed(buf, 0, 60)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(metrics.BufferHighWaterAlarms)-before == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("high-water alarm not recorded")
}

func TestNewPoller_Defaults(t *testing.T) {
	p := NewPoller(ingest.NewBuffer(), nil, &fakeSubmitter{}, Config{})
	s := p.Stats()
	if s.BatchSize != 1000 || s.Interval != "1s" {
		t.Errorf("defaults = %+v", s)
	}
}
