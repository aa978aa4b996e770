// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/sensorflow/internal/validation"
)

// ErrNoSinks is returned when no persistence sink is enabled and
// sinks.none is not set.
var ErrNoSinks = errors.New("no persistence sink enabled (set sinks.none to run without one)")

// Validate checks field constraints and the rules that span fields.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateBackoff(); err != nil {
		return err
	}
	return c.validateSinks()
}

func (c *Config) validateSource() error {
	u, err := url.Parse(c.Source.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("source.url %q is not an absolute URL", c.Source.URL)
	}
	scheme := strings.ToLower(u.Scheme)

	switch c.Source.Type {
	case SourceWebSocket:
		if scheme != "ws" && scheme != "wss" {
			return fmt.Errorf("source.url must use ws:// or wss:// for source.type=websocket, got %q", u.Scheme)
		}
	case SourceNATS:
		if scheme != "nats" && scheme != "tls" {
			return fmt.Errorf("source.url must use nats:// or tls:// for source.type=nats, got %q", u.Scheme)
		}
		if c.Source.Subject == "" {
			return errors.New("source.subject is required for source.type=nats")
		}
	}
	return nil
}

func (c *Config) validateBackoff() error {
	if c.Backoff.MaxBackoffMS < c.Backoff.InitialBackoffMS {
		return fmt.Errorf("backoff.max_backoff_ms (%d) must be >= backoff.initial_backoff_ms (%d)",
			c.Backoff.MaxBackoffMS, c.Backoff.InitialBackoffMS)
	}
	return nil
}

func (c *Config) validateSinks() error {
	s := c.Sinks
	if s.CSV.Enabled && s.CSV.Dir == "" {
		return errors.New("sinks.csv.dir is required when the CSV sink is enabled")
	}
	if s.DuckDB.Enabled && s.DuckDB.Path == "" {
		return errors.New("sinks.duckdb.path is required when the DuckDB sink is enabled (use :memory: for an in-memory database)")
	}
	if s.Archive.Enabled && s.Archive.Path == "" {
		return errors.New("sinks.archive.path is required when the archive is enabled")
	}
	if s.NATS.Enabled {
		if s.NATS.Subject == "" {
			return errors.New("sinks.nats.subject is required when the NATS sink is enabled")
		}
		if s.NATS.URL == "" && !c.Broker.Embedded {
			return errors.New("sinks.nats.url is required unless broker.embedded is set")
		}
	}

	if !s.None && !s.CSV.Enabled && !s.DuckDB.Enabled && !s.Archive.Enabled && !s.NATS.Enabled {
		return ErrNoSinks
	}
	return nil
}
