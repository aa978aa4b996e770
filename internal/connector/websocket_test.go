// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package connector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newWSServer starts a test endpoint that sends frames and then either
// closes normally or drops the TCP connection.
func newWSServer(t *testing.T, frames []string, normalClose bool) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if normalClose {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
				time.Now().Add(time.Second))
			// Wait for the client's close reply.
			_, _, _ = conn.ReadMessage()
			return
		}
		_ = conn.UnderlyingConn().Close()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestNewWebSocketConnector_Validation(t *testing.T) {
	if _, err := NewWebSocketConnector(WebSocketConfig{URL: "http://example.com"}); err == nil {
		t.Error("expected error for http scheme")
	}
	c, err := NewWebSocketConnector(WebSocketConfig{URL: "ws://example.com", ReadTimeout: 4 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.cfg.PingInterval != 2*time.Second {
		t.Errorf("PingInterval = %v, want half of read timeout", c.cfg.PingInterval)
	}
}

func TestWebSocketConnector_StreamUntilNormalClose(t *testing.T) {
	frames := []string{`{"axis":"x","value":1}`, `{"axis":"y","value":2}`, `{"axis":"z","value":3}`}
	srv := newWSServer(t, frames, true)

	c, err := NewWebSocketConnector(DefaultWebSocketConfig(wsURL(srv)))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var got []string
	err = c.Stream(ctx, func(p []byte) { got = append(got, string(p)) })
	if !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("Stream error = %v, want ErrStreamClosed", err)
	}
	if len(got) != 3 || got[0] != frames[0] || got[2] != frames[2] {
		t.Errorf("delivered %v", got)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestWebSocketConnector_ConnectionDropped(t *testing.T) {
	srv := newWSServer(t, []string{"1,2,3"}, false)

	c, _ := NewWebSocketConnector(DefaultWebSocketConfig(wsURL(srv)))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	count := 0
	err := c.Stream(ctx, func([]byte) { count++ })
	if !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("Stream error = %v, want ErrConnectionLost", err)
	}
	if count != 1 {
		t.Errorf("delivered %d frames, want 1", count)
	}
	_ = c.Close()
}

func TestWebSocketConnector_StreamCancelled(t *testing.T) {
	upgrader := websocket.Upgrader{}
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c, _ := NewWebSocketConnector(DefaultWebSocketConfig(wsURL(srv)))
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Stream(ctx, func([]byte) {}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Stream error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stream did not return after cancel")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close after cancel: %v", err)
	}
}

func TestWebSocketConnector_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, _ := NewWebSocketConnector(DefaultWebSocketConfig(wsURL(srv)))
	err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("error = %v, want HTTP status", err)
	}
	if err := c.Stream(context.Background(), func([]byte) {}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Stream without connection = %v, want ErrNotConnected", err)
	}
}
