// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/sensorflow/internal/config"
	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/sink"
)

// sinkSet holds the opened sinks. archive is nil unless the archive is
// enabled; it is kept separately because the API and the compactor read it.
type sinkSet struct {
	fanout  *sink.Fanout
	archive *sink.ArchiveSink
}

// openSinks opens every enabled sink and gives each its own circuit breaker.
// natsURL replaces an empty sinks.nats.url, which is how the embedded broker
// is picked up. On error the sinks opened so far are closed.
func openSinks(ctx context.Context, cfg config.SinksConfig, breaker sink.BreakerConfig, natsURL string) (*sinkSet, error) {
	var (
		opened  []sink.Sink
		archive *sink.ArchiveSink
	)
	fail := func(err error) (*sinkSet, error) {
		if closeErr := sink.NewFanout(opened...).Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close sinks after setup error")
		}
		return nil, err
	}

	if cfg.CSV.Enabled {
		csvSink, err := sink.NewCSVSink(cfg.CSV.Dir)
		if err != nil {
			return fail(fmt.Errorf("csv sink: %w", err))
		}
		opened = append(opened, csvSink)
		logging.Info().Str("dir", cfg.CSV.Dir).Msg("CSV sink enabled")
	}

	if cfg.DuckDB.Enabled {
		duck, err := sink.OpenDuckDB(ctx, cfg.DuckDB.Path)
		if err != nil {
			return fail(fmt.Errorf("duckdb sink: %w", err))
		}
		opened = append(opened, duck)
		logging.Info().Str("path", cfg.DuckDB.Path).Msg("DuckDB sink enabled")
	}

	if cfg.Archive.Enabled {
		a, err := sink.OpenArchive(sink.ArchiveConfig{
			Path:       cfg.Archive.Path,
			SyncWrites: cfg.Archive.SyncWrites,
			TTL:        cfg.Archive.TTL,
		})
		if err != nil {
			return fail(fmt.Errorf("archive sink: %w", err))
		}
		opened = append(opened, a)
		archive = a
		logging.Info().Str("path", cfg.Archive.Path).Dur("ttl", cfg.Archive.TTL).Msg("Batch archive enabled")
	}

	if cfg.NATS.Enabled {
		url := cfg.NATS.URL
		if url == "" {
			url = natsURL
		}
		pub, err := sink.NewNATSSink(sink.NATSSinkConfig{URL: url, Subject: cfg.NATS.Subject})
		if err != nil {
			return fail(fmt.Errorf("nats sink: %w", err))
		}
		opened = append(opened, pub)
		logging.Info().Str("url", url).Str("subject", cfg.NATS.Subject).Msg("NATS batch publisher enabled")
	}

	if len(opened) == 0 {
		logging.Warn().Msg("No persistence sink enabled; batches are only rendered")
	}

	guarded := make([]sink.Sink, len(opened))
	for i, s := range opened {
		guarded[i] = sink.WithBreaker(s, breaker)
	}
	return &sinkSet{fanout: sink.NewFanout(guarded...), archive: archive}, nil
}
