// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package websocket

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/metrics"
	"github.com/tomtom215/sensorflow/internal/models"
)

// Message types
const (
	MessageTypeBatch        = "batch"
	MessageTypeBufferStatus = "buffer_status"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

const broadcastBufferSize = 64

// Message is the envelope for everything sent to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// BatchData is the chart payload for one batch.
type BatchData struct {
	Seq        uint64      `json:"seq"`
	ID         string      `json:"id"`
	Size       int         `json:"size"`
	CreatedAt  time.Time   `json:"created_at"`
	Timestamps []time.Time `json:"timestamps"`
	X          []float64   `json:"x"`
	Y          []float64   `json:"y"`
	Z          []float64   `json:"z"`
}

// NewBatchData converts a batch to its columnar chart form.
func NewBatchData(batch models.Batch) BatchData {
	cols := batch.Columns()
	return BatchData{
		Seq:        batch.Seq(),
		ID:         batch.ID().String(),
		Size:       batch.Len(),
		CreatedAt:  batch.CreatedAt(),
		Timestamps: cols.Timestamps,
		X:          cols.X,
		Y:          cols.Y,
		Z:          cols.Z,
	}
}

// BufferStatus reports how much of the next batch has arrived.
type BufferStatus struct {
	Available int       `json:"available"`
	BatchSize int       `json:"batch_size"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Z         int       `json:"z"`
	T         int       `json:"t"`
	State     string    `json:"state"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusText renders the human readable progress line.
func StatusText(available, batchSize int) string {
	return fmt.Sprintf("Incoming buffer size: %d/%d", available, batchSize)
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients   map[*Client]bool
	broadcast chan Message
	register  chan *Client
	mu        sync.RWMutex

	latest atomic.Pointer[Message]
}

// NewHub creates a hub. It does nothing until Serve runs.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]bool),
		broadcast: make(chan Message, broadcastBufferSize),
		register:  make(chan *Client),
	}
}

// Register hands a connected client to the hub. It blocks until the hub
// accepts the client or ctx ends.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// leave removes c from the hub. It runs on the client's goroutine so a
// stopped hub cannot strand the read pump.
func (h *Hub) leave(c *Client) {
	h.removeClient(c)
}

// Serve runs the hub until ctx ends. Registrations take priority over
// broadcasts so the client set is current before each message goes out.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.register:
			h.addClient(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.addClient(c)
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	if latest := h.latest.Load(); latest != nil {
		select {
		case c.send <- *latest:
		default:
		}
	}

	metrics.WSConnections.Set(float64(n))
	logging.Info().Uint64("client_id", c.id).Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}

	metrics.WSConnections.Set(float64(n))
	logging.Info().Uint64("client_id", c.id).Int("total_clients", n).Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", ctx.Err().Error()).
		Int("clients_closed", n).
		Msg("websocket hub stopped")
}

// broadcastToClients delivers msg in client ID order. Clients that cannot
// keep up are dropped.
func (h *Hub) broadcastToClients(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, c)
			logging.Warn().Uint64("client_id", c.id).Msg("websocket client too slow, disconnected")
		}
	}
	metrics.WSConnections.Set(float64(len(h.clients)))
	metrics.RecordWSMessage(msg.Type)
}

func (h *Hub) enqueue(msg Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		metrics.WSBroadcastDropped.Inc()
		logging.Warn().Str("message_type", msg.Type).Msg("broadcast channel full, dropping message")
		return false
	}
}

// Render publishes batch to every client and keeps it for late joiners.
func (h *Hub) Render(batch models.Batch) {
	msg := Message{Type: MessageTypeBatch, Data: NewBatchData(batch)}
	h.latest.Store(&msg)
	h.enqueue(msg)
}

// BroadcastStatus publishes a buffer status update.
func (h *Hub) BroadcastStatus(status BufferStatus) {
	if status.Message == "" {
		status.Message = StatusText(status.Available, status.BatchSize)
	}
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now().UTC()
	}
	h.enqueue(Message{Type: MessageTypeBufferStatus, Data: status})
}

// LatestBatch returns the most recently rendered batch, if any.
func (h *Hub) LatestBatch() (BatchData, bool) {
	msg := h.latest.Load()
	if msg == nil {
		return BatchData{}, false
	}
	data, ok := msg.Data.(BatchData)
	return data, ok
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
