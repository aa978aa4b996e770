// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package main

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tomtom215/sensorflow/internal/config"
	"github.com/tomtom215/sensorflow/internal/connector"
	"github.com/tomtom215/sensorflow/internal/reconnect"
)

// newConnector builds the telemetry connector selected by source.type.
// Zero timeouts keep the connector defaults.
func newConnector(cfg config.SourceConfig) (connector.Connector, error) {
	switch cfg.Type {
	case config.SourceWebSocket:
		wsCfg := connector.DefaultWebSocketConfig(cfg.URL)
		if cfg.HandshakeTimeout > 0 {
			wsCfg.HandshakeTimeout = cfg.HandshakeTimeout
		}
		if cfg.ReadTimeout > 0 {
			wsCfg.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.PingInterval > 0 {
			wsCfg.PingInterval = cfg.PingInterval
		}
		return connector.NewWebSocketConnector(wsCfg)
	case config.SourceNATS:
		return connector.NewNATSConnector(connector.NATSConfig{
			URL:        cfg.URL,
			Subject:    cfg.Subject,
			QueueGroup: cfg.QueueGroup,
		})
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

// reconnectConfig maps the backoff and source settings onto the reconnect
// supervisor.
func reconnectConfig(cfg *config.Config) reconnect.Config {
	rc := reconnect.DefaultConfig()
	rc.InitialBackoff = cfg.Backoff.Initial()
	rc.MaxBackoff = cfg.Backoff.Max()
	if cfg.Source.MalformedLogRate > 0 {
		rc.MalformedLogRate = rate.Limit(cfg.Source.MalformedLogRate)
	}
	if cfg.Source.MalformedLogBurst > 0 {
		rc.MalformedLogBurst = cfg.Source.MalformedLogBurst
	}
	return rc
}
