// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/sensorflow/internal/dispatch"
	"github.com/tomtom215/sensorflow/internal/ingest"
	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/models"
	"github.com/tomtom215/sensorflow/internal/pipeline"
	"github.com/tomtom215/sensorflow/internal/reconnect"
	ws "github.com/tomtom215/sensorflow/internal/websocket"
)

const registerTimeout = 5 * time.Second

// BufferInspector reports ingest buffer lengths. *ingest.Buffer implements it.
type BufferInspector interface {
	Lengths() ingest.AxisLengths
}

// ConnectionInspector reports the telemetry connection. *reconnect.Supervisor
// implements it.
type ConnectionInspector interface {
	State() models.ConnectionState
	Stats() reconnect.Stats
}

// DispatchInspector is implemented by *dispatch.Dispatcher.
type DispatchInspector interface {
	Stats() dispatch.Stats
}

// PollerInspector is implemented by *pipeline.Poller.
type PollerInspector interface {
	Stats() pipeline.Stats
}

// BatchArchive is the read side of the archive sink. *sink.ArchiveSink
// implements it.
type BatchArchive interface {
	Get(seq uint64) (models.Batch, error)
	Range(from uint64, limit int) ([]models.Batch, error)
	LatestSeq() (uint64, error)
}

// Config holds HTTP-facing settings.
type Config struct {
	BatchSize      int
	AllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// Dependencies are the components the handlers read from. Archive may be nil.
type Dependencies struct {
	Hub        *ws.Hub
	Buffer     BufferInspector
	Connection ConnectionInspector
	Dispatcher DispatchInspector
	Poller     PollerInspector
	Archive    BatchArchive
}

// Handler serves the HTTP endpoints.
type Handler struct {
	cfg       Config
	deps      Dependencies
	upgrader  websocket.Upgrader
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg Config, deps Dependencies) *Handler {
	h := &Handler{
		cfg:       cfg,
		deps:      deps,
		startTime: time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// checkWebSocketOrigin accepts browser origins listed in AllowedOrigins.
// A missing Origin header is rejected: browsers always send one.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// WebSocket upgrades the request and registers a visualization client.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.deps.Hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	// Hijacked requests are not cancelled when the peer goes away.
	ctx, cancel := context.WithTimeout(r.Context(), registerTimeout)
	defer cancel()

	client := ws.NewClient(h.deps.Hub, conn)
	if err := h.deps.Hub.Register(ctx, client); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket client not registered")
		_ = conn.Close()
		return
	}
	client.Start()
}
