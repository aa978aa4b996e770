// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package models

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testSamples(n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{
			Timestamp: testEpoch.Add(time.Duration(i) * 10 * time.Millisecond),
			X:         float64(i),
			Y:         float64(i) + 0.5,
			Z:         -float64(i),
		}
	}
	return out
}

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in      string
		want    Axis
		wantErr bool
	}{
		{"x", AxisX, false},
		{"Y", AxisY, false},
		{" z ", AxisZ, false},
		{"py_x", AxisX, false},
		{"PY_Z", AxisZ, false},
		{"w", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAxis(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAxis(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAxis(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAxis_String(t *testing.T) {
	if AxisX.String() != "x" || AxisY.String() != "y" || AxisZ.String() != "z" {
		t.Error("unexpected axis names")
	}
	if Axis(7).Valid() {
		t.Error("axis 7 should be invalid")
	}
}

func TestSample_Finite(t *testing.T) {
	if !(Sample{X: 1, Y: 2, Z: 3}).Finite() {
		t.Error("finite sample reported as non-finite")
	}
	if (Sample{X: math.NaN()}).Finite() {
		t.Error("NaN sample reported as finite")
	}
	if (Sample{Z: math.Inf(-1)}).Finite() {
		t.Error("-Inf sample reported as finite")
	}
}

func TestNewBatch_CopiesInput(t *testing.T) {
	in := testSamples(3)
	b := NewBatch(1, in)
	in[0].X = 999

	if b.At(0).X != 0 {
		t.Errorf("batch observed caller mutation: X = %v", b.At(0).X)
	}

	out := b.Samples()
	out[1].Y = 999
	if b.At(1).Y != 1.5 {
		t.Errorf("batch observed mutation through Samples(): Y = %v", b.At(1).Y)
	}
}

func TestNewBatchFromColumns(t *testing.T) {
	ts := []time.Time{testEpoch, testEpoch.Add(time.Second)}
	b, err := NewBatchFromColumns(4, ts, []float64{1, 2}, []float64{3, 4}, []float64{5, 6})
	if err != nil {
		t.Fatalf("NewBatchFromColumns: %v", err)
	}
	if b.Len() != 2 || b.Seq() != 4 {
		t.Fatalf("Len=%d Seq=%d", b.Len(), b.Seq())
	}
	if got := b.At(1); got.X != 2 || got.Y != 4 || got.Z != 6 || !got.Timestamp.Equal(ts[1]) {
		t.Errorf("At(1) = %+v", got)
	}
	if !b.First().Equal(ts[0]) || !b.Last().Equal(ts[1]) {
		t.Errorf("First/Last = %v/%v", b.First(), b.Last())
	}

	_, err = NewBatchFromColumns(1, ts, []float64{1}, []float64{3, 4}, []float64{5, 6})
	if !errors.Is(err, ErrColumnMismatch) {
		t.Errorf("expected ErrColumnMismatch, got %v", err)
	}
}

func TestBatch_Columns(t *testing.T) {
	b := NewBatch(2, testSamples(4))
	c := b.Columns()
	if len(c.Timestamps) != 4 || len(c.X) != 4 || len(c.Y) != 4 || len(c.Z) != 4 {
		t.Fatalf("unexpected column lengths: %d %d %d %d", len(c.Timestamps), len(c.X), len(c.Y), len(c.Z))
	}
	for i := 0; i < 4; i++ {
		s := b.At(i)
		if c.X[i] != s.X || c.Y[i] != s.Y || c.Z[i] != s.Z || !c.Timestamps[i].Equal(s.Timestamp) {
			t.Errorf("column row %d differs from sample %+v", i, s)
		}
	}
}

func TestBatch_JSON(t *testing.T) {
	b := NewBatch(7, testSamples(5))

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Batch
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ID() != b.ID() || decoded.Seq() != 7 || decoded.Len() != 5 {
		t.Errorf("decoded id=%v seq=%d len=%d", decoded.ID(), decoded.Seq(), decoded.Len())
	}
	if !decoded.Last().Equal(b.Last()) {
		t.Errorf("decoded last = %v, want %v", decoded.Last(), b.Last())
	}

	bad := []byte(`{"seq":1,"size":3,"samples":[]}`)
	if err := json.Unmarshal(bad, &decoded); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestBatch_ZeroValue(t *testing.T) {
	var b Batch
	if b.Len() != 0 || !b.First().IsZero() || !b.Last().IsZero() {
		t.Error("zero batch should be empty")
	}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `"samples":[]`; !strings.Contains(string(data), want) {
		t.Errorf("expected %s in %s", want, data)
	}
}

func TestConnectionState_String(t *testing.T) {
	tests := map[ConnectionState]string{
		StateDisconnected:   "disconnected",
		StateConnecting:     "connecting",
		StateStreaming:      "streaming",
		StateFailed:         "failed",
		ConnectionState(42): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
