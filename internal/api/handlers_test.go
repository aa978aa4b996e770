// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorflow/internal/dispatch"
	"github.com/tomtom215/sensorflow/internal/ingest"
	"github.com/tomtom215/sensorflow/internal/models"
	"github.com/tomtom215/sensorflow/internal/pipeline"
	"github.com/tomtom215/sensorflow/internal/reconnect"
	"github.com/tomtom215/sensorflow/internal/sink"
)

type fakeBuffer struct{ lengths ingest.AxisLengths }

func (f fakeBuffer) Lengths() ingest.AxisLengths { return f.lengths }

type fakeConnection struct{ state models.ConnectionState }

func (f fakeConnection) State() models.ConnectionState { return f.state }

func (f fakeConnection) Stats() reconnect.Stats {
	return reconnect.Stats{State: f.state.String(), Sessions: 2, Failures: 1}
}

type fakeDispatcher struct{}

func (fakeDispatcher) Stats() dispatch.Stats {
	return dispatch.Stats{Submitted: 4, Dispatched: 3, Dropped: 1, QueueSize: 16, Async: true, Breakers: map[string]string{"csv": "closed"}}
}

type fakePoller struct{}

func (fakePoller) Stats() pipeline.Stats { return pipeline.Stats{Polls: 7, Batches: 2, BatchSize: 1000} }

func testConfig() Config {
	return Config{
		BatchSize:         1000,
		AllowedOrigins:    []string{"http://dashboard.local"},
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
	}
}

// envelope mirrors Response with raw data for per-test decoding.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
		Count     *int   `json:"count"`
	} `json:"metadata"`
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("GET %s: decode body %q: %v", path, rec.Body.String(), err)
		}
	}
	return rec, env
}

func testSamples(n int) []models.Sample {
	base := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	out := make([]models.Sample, n)
	for i := range out {
		out[i] = models.Sample{Timestamp: base.Add(time.Duration(i) * 10 * time.Millisecond), X: float64(i), Y: 0.5, Z: -1}
	}
	return out
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		conn       ConnectionInspector
		wantStatus int
		wantState  string
	}{
		{"streaming", fakeConnection{models.StateStreaming}, http.StatusOK, "streaming"},
		{"connecting", fakeConnection{models.StateConnecting}, http.StatusServiceUnavailable, "connecting"},
		{"failed", fakeConnection{models.StateFailed}, http.StatusServiceUnavailable, "failed"},
		{"no source", nil, http.StatusServiceUnavailable, "disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(testConfig(), Dependencies{Connection: tt.conn}).Routes()
			rec, env := get(t, h, "/health")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var health HealthStatus
			if err := json.Unmarshal(env.Data, &health); err != nil {
				t.Fatal(err)
			}
			if health.State != tt.wantState || health.Healthy != (tt.wantStatus == http.StatusOK) {
				t.Errorf("health = %+v", health)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	archive, err := sink.OpenArchive(sink.ArchiveConfig{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = archive.Close() })
	if err := archive.Write(context.Background(), models.NewBatch(12, testSamples(3))); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(testConfig(), Dependencies{
		Buffer:     fakeBuffer{ingest.AxisLengths{X: 5, Y: 3, Z: 4, T: 5}},
		Connection: fakeConnection{models.StateStreaming},
		Dispatcher: fakeDispatcher{},
		Poller:     fakePoller{},
		Archive:    archive,
	}).Routes()

	rec, env := get(t, h, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var snap StatusSnapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Buffer.Available != 3 || snap.Buffer.BatchSize != 1000 {
		t.Errorf("buffer = %+v", snap.Buffer)
	}
	if snap.Buffer.Message != "Incoming buffer size: 3/1000" {
		t.Errorf("buffer message = %q", snap.Buffer.Message)
	}
	if snap.Connection == nil || snap.Connection.State != "streaming" || snap.Connection.Sessions != 2 {
		t.Errorf("connection = %+v", snap.Connection)
	}
	if snap.Dispatcher == nil || snap.Dispatcher.Dropped != 1 || snap.Dispatcher.Breakers["csv"] != "closed" {
		t.Errorf("dispatcher = %+v", snap.Dispatcher)
	}
	if snap.Poller == nil || snap.Poller.Batches != 2 {
		t.Errorf("poller = %+v", snap.Poller)
	}
	if !snap.Archive.Enabled || snap.Archive.LatestSeq != 12 {
		t.Errorf("archive = %+v", snap.Archive)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing on /api/v1")
	}
}

func TestBatches_ArchiveDisabled(t *testing.T) {
	h := NewHandler(testConfig(), Dependencies{}).Routes()
	for _, path := range []string{"/api/v1/batches/1", "/api/v1/batches", "/api/v1/batches/latest"} {
		rec, env := get(t, h, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
		if env.Error == nil || env.Error.Code != ErrCodeNotFound {
			t.Errorf("GET %s error = %+v", path, env.Error)
		}
	}
}

func TestBatches_Archive(t *testing.T) {
	archive, err := sink.OpenArchive(sink.ArchiveConfig{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = archive.Close() })

	h := NewHandler(testConfig(), Dependencies{Archive: archive}).Routes()

	if rec, _ := get(t, h, "/api/v1/batches/latest"); rec.Code != http.StatusNotFound {
		t.Errorf("latest on empty archive = %d, want 404", rec.Code)
	}

	for seq := uint64(1); seq <= 3; seq++ {
		if err := archive.Write(context.Background(), models.NewBatch(seq, testSamples(int(seq)*10))); err != nil {
			t.Fatal(err)
		}
	}

	type batchBody struct {
		Seq     uint64          `json:"seq"`
		Size    int             `json:"size"`
		Samples []models.Sample `json:"samples"`
	}

	t.Run("get by seq", func(t *testing.T) {
		rec, env := get(t, h, "/api/v1/batches/2")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var b batchBody
		if err := json.Unmarshal(env.Data, &b); err != nil {
			t.Fatal(err)
		}
		if b.Seq != 2 || b.Size != 20 || len(b.Samples) != 20 || b.Samples[19].X != 19 {
			t.Errorf("batch = seq %d size %d samples %d", b.Seq, b.Size, len(b.Samples))
		}
	})

	t.Run("latest", func(t *testing.T) {
		_, env := get(t, h, "/api/v1/batches/latest")
		var b batchBody
		if err := json.Unmarshal(env.Data, &b); err != nil {
			t.Fatal(err)
		}
		if b.Seq != 3 {
			t.Errorf("latest seq = %d, want 3", b.Seq)
		}
	})

	t.Run("list", func(t *testing.T) {
		rec, env := get(t, h, "/api/v1/batches?from=2&limit=5")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var list []batchBody
		if err := json.Unmarshal(env.Data, &list); err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 || list[0].Seq != 2 || list[1].Seq != 3 {
			t.Errorf("list seqs = %+v", list)
		}
		if env.Metadata.Count == nil || *env.Metadata.Count != 2 {
			t.Errorf("metadata count = %v", env.Metadata.Count)
		}
	})

	t.Run("list past the end", func(t *testing.T) {
		rec, env := get(t, h, "/api/v1/batches?from=50")
		if rec.Code != http.StatusOK || string(env.Data) != "[]" {
			t.Errorf("status %d data %s, want 200 []", rec.Code, env.Data)
		}
	})

	errorCases := []struct {
		path     string
		wantCode int
		wantErr  string
	}{
		{"/api/v1/batches/99", http.StatusNotFound, ErrCodeNotFound},
		{"/api/v1/batches/abc", http.StatusBadRequest, ErrCodeBadRequest},
		{"/api/v1/batches?from=-1", http.StatusBadRequest, ErrCodeBadRequest},
		{"/api/v1/batches?limit=x", http.StatusBadRequest, ErrCodeBadRequest},
		{"/api/v1/batches?limit=0", http.StatusBadRequest, ErrCodeValidationFailed},
		{"/api/v1/batches?limit=500", http.StatusBadRequest, ErrCodeValidationFailed},
	}
	for _, tc := range errorCases {
		t.Run(tc.path, func(t *testing.T) {
			rec, env := get(t, h, tc.path)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if env.Error == nil || env.Error.Code != tc.wantErr {
				t.Errorf("error = %+v, want code %s", env.Error, tc.wantErr)
			}
		})
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := NewHandler(testConfig(), Dependencies{}).Routes()

	if rec, env := get(t, h, "/nope"); rec.Code != http.StatusNotFound || env.Error == nil {
		t.Errorf("GET /nope = %d %+v", rec.Code, env.Error)
	}

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health = %d, want 405", rec.Code)
	}
}
