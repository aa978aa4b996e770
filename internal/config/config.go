// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package config

import (
	"time"
)

// Source types
const (
	SourceWebSocket = "websocket"
	SourceNATS      = "nats"
)

// Config is the complete service configuration.
type Config struct {
	Source     SourceConfig     `koanf:"source"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Backoff    BackoffConfig    `koanf:"backoff"`
	Dispatch   DispatchConfig   `koanf:"dispatch"`
	Sinks      SinksConfig      `koanf:"sinks"`
	Broker     BrokerConfig     `koanf:"broker"`
	Server     ServerConfig     `koanf:"server"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// SourceConfig selects and configures the telemetry connector.
//
// Environment Variables:
//   - SOURCE_TYPE: websocket or nats (default: websocket)
//   - SOURCE_URL: ws(s):// URL or nats:// URL
//   - SOURCE_SUBJECT: NATS subject (nats only)
type SourceConfig struct {
	Type       string `koanf:"type" validate:"oneof=websocket nats"`
	URL        string `koanf:"url" validate:"required"`
	Subject    string `koanf:"subject"`
	QueueGroup string `koanf:"queue_group"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout" validate:"gte=0"`
	ReadTimeout      time.Duration `koanf:"read_timeout" validate:"gte=0"`
	PingInterval     time.Duration `koanf:"ping_interval" validate:"gte=0"`

	// MalformedLogRate caps "malformed payload" warnings per second.
	MalformedLogRate  float64 `koanf:"malformed_log_rate" validate:"gte=0"`
	MalformedLogBurst int     `koanf:"malformed_log_burst" validate:"gte=0"`
}

// PipelineConfig sizes batches and sets the poll cadence.
//
// Environment Variables:
//   - BATCH_SIZE: samples per batch (default: 1000)
//   - POLL_INTERVAL_MS: poll period in milliseconds (default: 1000)
//   - HIGH_WATER_MARK: backlog alarm threshold, 0 disables (default: 0)
type PipelineConfig struct {
	BatchSize      int `koanf:"batch_size" validate:"min=1"`
	PollIntervalMS int `koanf:"poll_interval_ms" validate:"min=1"`
	HighWaterMark  int `koanf:"high_water_mark" validate:"gte=0"`
}

// PollInterval returns PollIntervalMS as a duration.
func (p PipelineConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMS) * time.Millisecond
}

// BackoffConfig bounds reconnect delays.
//
// Environment Variables:
//   - INITIAL_BACKOFF_MS (default: 1000)
//   - MAX_BACKOFF_MS (default: 60000)
type BackoffConfig struct {
	InitialBackoffMS int `koanf:"initial_backoff_ms" validate:"min=1"`
	MaxBackoffMS     int `koanf:"max_backoff_ms" validate:"min=1"`
}

// Initial returns the first reconnect delay.
func (b BackoffConfig) Initial() time.Duration {
	return time.Duration(b.InitialBackoffMS) * time.Millisecond
}

// Max returns the reconnect delay cap.
func (b BackoffConfig) Max() time.Duration {
	return time.Duration(b.MaxBackoffMS) * time.Millisecond
}

// DispatchConfig configures batch hand-off to the sinks.
type DispatchConfig struct {
	Async        bool          `koanf:"async"`
	QueueSize    int           `koanf:"queue_size" validate:"min=1"`
	DrainTimeout time.Duration `koanf:"drain_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	Breaker      BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the circuit breaker given to each sink.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests" validate:"min=1"`
	Interval         time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
}

// SinksConfig enables persistence sinks. At least one must be enabled
// unless None is set.
type SinksConfig struct {
	None    bool          `koanf:"none"`
	CSV     CSVConfig     `koanf:"csv"`
	DuckDB  DuckDBConfig  `koanf:"duckdb"`
	Archive ArchiveConfig `koanf:"archive"`
	NATS    NATSConfig    `koanf:"nats"`
}

// CSVConfig configures the per-batch CSV export.
//
// Environment Variables:
//   - CSV_ENABLED (default: true)
//   - CSV_DIR (default: week-8_data)
type CSVConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// DuckDBConfig configures the DuckDB sink.
type DuckDBConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// ArchiveConfig configures the Badger batch archive.
type ArchiveConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Path       string        `koanf:"path"`
	TTL        time.Duration `koanf:"ttl" validate:"gte=0"`
	GCInterval time.Duration `koanf:"gc_interval" validate:"gte=0"`
	SyncWrites bool          `koanf:"sync_writes"`
}

// NATSConfig configures batch publishing to NATS.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
}

// BrokerConfig runs an in-process NATS server. Useful for development and
// for single-host deployments where the source and sink share one broker.
type BrokerConfig struct {
	Embedded bool   `koanf:"embedded"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"min=-1,max=65535"`
}

// ServerConfig configures the HTTP server.
//
// Environment Variables:
//   - HTTP_HOST (default: 0.0.0.0)
//   - HTTP_PORT (default: 8050)
//   - ALLOWED_ORIGINS: comma-separated websocket and CORS origins (default: *)
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, RATE_LIMIT_DISABLED
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// Per-IP limit on /api/v1. /ws, /health and /metrics are not limited.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// SupervisorConfig tunes the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gte=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gte=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gte=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

// LoggingConfig holds zerolog settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
//   - LOG_SAMPLE_EVERY: keep one in N trace/debug lines, 0 keeps all (default: 0)
type LoggingConfig struct {
	Level       string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled off"`
	Format      string `koanf:"format" validate:"oneof=json console"`
	Caller      bool   `koanf:"caller"`
	SampleEvery uint32 `koanf:"sample_every"`
}
