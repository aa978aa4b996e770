// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/sensorflow/internal/config"
	"github.com/tomtom215/sensorflow/internal/sink"
)

func TestNewConnector(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SourceConfig
		want    string
		wantErr bool
	}{
		{
			name: "websocket",
			cfg:  config.SourceConfig{Type: config.SourceWebSocket, URL: "ws://127.0.0.1:81/"},
		},
		{
			name: "websocket with overrides",
			cfg: config.SourceConfig{
				Type:             config.SourceWebSocket,
				URL:              "wss://sensor.local/stream",
				HandshakeTimeout: time.Second,
				ReadTimeout:      5 * time.Second,
				PingInterval:     2 * time.Second,
			},
		},
		{
			name: "nats",
			cfg:  config.SourceConfig{Type: config.SourceNATS, URL: "nats://127.0.0.1:4222", Subject: "sensors.imu"},
		},
		{
			name:    "nats without subject",
			cfg:     config.SourceConfig{Type: config.SourceNATS, URL: "nats://127.0.0.1:4222"},
			wantErr: true,
		},
		{
			name:    "websocket with http scheme",
			cfg:     config.SourceConfig{Type: config.SourceWebSocket, URL: "http://127.0.0.1:81/"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			cfg:     config.SourceConfig{Type: "serial", URL: "ws://127.0.0.1:81/"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := newConnector(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("newConnector: %v", err)
			}
			if conn.String() == "" {
				t.Error("connector should have a name")
			}
			if err := conn.Close(); err != nil {
				t.Errorf("Close on an unopened connector: %v", err)
			}
		})
	}
}

func TestReconnectConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Backoff.InitialBackoffMS = 250
	cfg.Backoff.MaxBackoffMS = 4000
	cfg.Source.MalformedLogRate = 3
	cfg.Source.MalformedLogBurst = 7

	rc := reconnectConfig(cfg)
	if rc.InitialBackoff != 250*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 250ms", rc.InitialBackoff)
	}
	if rc.MaxBackoff != 4*time.Second {
		t.Errorf("MaxBackoff = %v, want 4s", rc.MaxBackoff)
	}
	if rc.MalformedLogRate != rate.Limit(3) {
		t.Errorf("MalformedLogRate = %v, want 3", rc.MalformedLogRate)
	}
	if rc.MalformedLogBurst != 7 {
		t.Errorf("MalformedLogBurst = %d, want 7", rc.MalformedLogBurst)
	}
}

func TestOpenSinks(t *testing.T) {
	t.Run("csv and archive", func(t *testing.T) {
		dir := t.TempDir()
		cfg := config.SinksConfig{
			CSV:     config.CSVConfig{Enabled: true, Dir: filepath.Join(dir, "csv")},
			Archive: config.ArchiveConfig{Enabled: true, Path: filepath.Join(dir, "archive")},
		}

		set, err := openSinks(context.Background(), cfg, sink.DefaultBreakerConfig(), "")
		if err != nil {
			t.Fatalf("openSinks: %v", err)
		}
		t.Cleanup(func() { _ = set.fanout.Close() })

		if set.fanout.Len() != 2 {
			t.Errorf("fanout has %d sinks, want 2 (%v)", set.fanout.Len(), set.fanout.Names())
		}
		if set.archive == nil {
			t.Error("archive should be exposed when enabled")
		}
		if states := set.fanout.BreakerStates(); len(states) != 2 {
			t.Errorf("BreakerStates() = %v, want one breaker per sink", states)
		}
	})

	t.Run("none enabled", func(t *testing.T) {
		set, err := openSinks(context.Background(), config.SinksConfig{None: true}, sink.DefaultBreakerConfig(), "")
		if err != nil {
			t.Fatalf("openSinks: %v", err)
		}
		if set.fanout.Len() != 0 {
			t.Errorf("fanout has %d sinks, want 0", set.fanout.Len())
		}
		if set.archive != nil {
			t.Error("archive should be nil when disabled")
		}
	})

	t.Run("nats without any url", func(t *testing.T) {
		cfg := config.SinksConfig{
			NATS: config.NATSConfig{Enabled: true, Subject: "sensorflow.batches"},
		}
		if _, err := openSinks(context.Background(), cfg, sink.DefaultBreakerConfig(), ""); err == nil {
			t.Fatal("expected error for a NATS sink with no url")
		}
	})
}
