// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/sensorflow/internal/dispatch"
	"github.com/tomtom215/sensorflow/internal/models"
	"github.com/tomtom215/sensorflow/internal/pipeline"
	"github.com/tomtom215/sensorflow/internal/reconnect"
	ws "github.com/tomtom215/sensorflow/internal/websocket"
)

// HealthStatus is the /health body.
type HealthStatus struct {
	Healthy          bool    `json:"healthy"`
	State            string  `json:"state"`
	WebSocketClients int     `json:"websocket_clients"`
	Uptime           float64 `json:"uptime_seconds"`
}

// BufferSnapshot is the ingest buffer part of /api/v1/status.
type BufferSnapshot struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Z         int    `json:"z"`
	T         int    `json:"t"`
	Available int    `json:"available"`
	BatchSize int    `json:"batch_size"`
	Message   string `json:"message"`
}

// ArchiveSnapshot is the archive part of /api/v1/status.
type ArchiveSnapshot struct {
	Enabled   bool   `json:"enabled"`
	LatestSeq uint64 `json:"latest_seq,omitempty"`
}

// StatusSnapshot is the /api/v1/status body.
type StatusSnapshot struct {
	Buffer           BufferSnapshot   `json:"buffer"`
	Connection       *reconnect.Stats `json:"connection,omitempty"`
	Dispatcher       *dispatch.Stats  `json:"dispatcher,omitempty"`
	Poller           *pipeline.Stats  `json:"poller,omitempty"`
	Archive          ArchiveSnapshot  `json:"archive"`
	WebSocketClients int              `json:"websocket_clients"`
	Uptime           float64          `json:"uptime_seconds"`
}

func (h *Handler) connectionState() models.ConnectionState {
	if h.deps.Connection == nil {
		return models.StateDisconnected
	}
	return h.deps.Connection.State()
}

func (h *Handler) clientCount() int {
	if h.deps.Hub == nil {
		return 0
	}
	return h.deps.Hub.ClientCount()
}

// Health answers 200 while telemetry is streaming and 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.connectionState()
	health := HealthStatus{
		Healthy:          state == models.StateStreaming,
		State:            state.String(),
		WebSocketClients: h.clientCount(),
		Uptime:           time.Since(h.startTime).Seconds(),
	}

	if !health.Healthy {
		respondJSON(w, http.StatusServiceUnavailable, &Response{
			Status:   "unavailable",
			Data:     health,
			Metadata: newMetadata(r),
		})
		return
	}
	respondData(w, r, http.StatusOK, health)
}

// Status reports a snapshot of every pipeline stage.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snap := StatusSnapshot{
		Buffer:           BufferSnapshot{BatchSize: h.cfg.BatchSize},
		WebSocketClients: h.clientCount(),
		Uptime:           time.Since(h.startTime).Seconds(),
	}

	if h.deps.Buffer != nil {
		l := h.deps.Buffer.Lengths()
		snap.Buffer.X, snap.Buffer.Y, snap.Buffer.Z, snap.Buffer.T = l.X, l.Y, l.Z, l.T
		snap.Buffer.Available = l.Available()
	}
	snap.Buffer.Message = ws.StatusText(snap.Buffer.Available, snap.Buffer.BatchSize)

	if h.deps.Connection != nil {
		stats := h.deps.Connection.Stats()
		snap.Connection = &stats
	}
	if h.deps.Dispatcher != nil {
		stats := h.deps.Dispatcher.Stats()
		snap.Dispatcher = &stats
	}
	if h.deps.Poller != nil {
		stats := h.deps.Poller.Stats()
		snap.Poller = &stats
	}
	if h.deps.Archive != nil {
		snap.Archive.Enabled = true
		seq, err := h.deps.Archive.LatestSeq()
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to read archive", err)
			return
		}
		snap.Archive.LatestSeq = seq
	}

	respondData(w, r, http.StatusOK, snap)
}
