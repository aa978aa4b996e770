// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sensorflow/config.yaml",
	"/etc/sensorflow/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:              SourceWebSocket,
			URL:               "ws://127.0.0.1:8080/telemetry",
			Subject:           "sensors.accel",
			HandshakeTimeout:  10 * time.Second,
			ReadTimeout:       60 * time.Second,
			PingInterval:      30 * time.Second,
			MalformedLogRate:  1,
			MalformedLogBurst: 5,
		},
		Pipeline: PipelineConfig{
			BatchSize:      1000,
			PollIntervalMS: 1000,
			HighWaterMark:  0,
		},
		Backoff: BackoffConfig{
			InitialBackoffMS: 1000,
			MaxBackoffMS:     60000,
		},
		Dispatch: DispatchConfig{
			Async:        true,
			QueueSize:    16,
			DrainTimeout: 10 * time.Second,
			WriteTimeout: 30 * time.Second,
			Breaker: BreakerConfig{
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		Sinks: SinksConfig{
			CSV: CSVConfig{
				Enabled: true,
				Dir:     "week-8_data",
			},
			DuckDB: DuckDBConfig{
				Enabled: false,
				Path:    "sensorflow.duckdb",
			},
			Archive: ArchiveConfig{
				Enabled:    false,
				Path:       "data/archive",
				TTL:        7 * 24 * time.Hour,
				GCInterval: 10 * time.Minute,
			},
			NATS: NATSConfig{
				Enabled: false,
				URL:     "nats://127.0.0.1:4222",
				Subject: "sensorflow.batches",
			},
		},
		Broker: BrokerConfig{
			Embedded: false,
			Host:     "127.0.0.1",
			Port:     4222,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8050,
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,

			RateLimitRequests: 600,
			RateLimitWindow:   time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing priority. An empty path searches
// ConfigPathEnvVar and DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings.
var sliceConfigPaths = []string{
	"server.allowed_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config keys.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"source_type":              "source.type",
	"source_url":               "source.url",
	"source_subject":           "source.subject",
	"source_queue_group":       "source.queue_group",
	"source_handshake_timeout": "source.handshake_timeout",
	"source_read_timeout":      "source.read_timeout",
	"source_ping_interval":     "source.ping_interval",

	"batch_size":       "pipeline.batch_size",
	"poll_interval_ms": "pipeline.poll_interval_ms",
	"high_water_mark":  "pipeline.high_water_mark",

	"initial_backoff_ms": "backoff.initial_backoff_ms",
	"max_backoff_ms":     "backoff.max_backoff_ms",

	"dispatch_async":               "dispatch.async",
	"dispatch_queue_size":          "dispatch.queue_size",
	"dispatch_drain_timeout":       "dispatch.drain_timeout",
	"dispatch_write_timeout":       "dispatch.write_timeout",
	"breaker_failure_threshold":    "dispatch.breaker.failure_threshold",
	"breaker_timeout":              "dispatch.breaker.timeout",
	"breaker_interval":             "dispatch.breaker.interval",
	"breaker_max_requests":         "dispatch.breaker.max_requests",
	"sinks_none":                   "sinks.none",
	"csv_enabled":                  "sinks.csv.enabled",
	"csv_dir":                      "sinks.csv.dir",
	"duckdb_enabled":               "sinks.duckdb.enabled",
	"duckdb_path":                  "sinks.duckdb.path",
	"archive_enabled":              "sinks.archive.enabled",
	"archive_path":                 "sinks.archive.path",
	"archive_ttl":                  "sinks.archive.ttl",
	"archive_gc_interval":          "sinks.archive.gc_interval",
	"archive_sync_writes":          "sinks.archive.sync_writes",
	"nats_sink_enabled":            "sinks.nats.enabled",
	"nats_sink_url":                "sinks.nats.url",
	"nats_sink_subject":            "sinks.nats.subject",
	"nats_embedded":                "broker.embedded",
	"nats_embedded_host":           "broker.host",
	"nats_embedded_port":           "broker.port",
	"http_host":                    "server.host",
	"http_port":                    "server.port",
	"allowed_origins":              "server.allowed_origins",
	"http_shutdown_timeout":        "server.shutdown_timeout",
	"rate_limit_requests":          "server.rate_limit_requests",
	"rate_limit_window":            "server.rate_limit_window",
	"rate_limit_disabled":          "server.rate_limit_disabled",
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
	"log_level":                    "logging.level",
	"log_format":                   "logging.format",
	"log_caller":                   "logging.caller",
	"log_sample_every":             "logging.sample_every",
}

// envTransformFunc maps an environment variable to its config key, or ""
// to skip it.
//
// Examples:
//   - BATCH_SIZE -> pipeline.batch_size
//   - CSV_DIR -> sinks.csv.dir
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
