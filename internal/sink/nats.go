// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package sink

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/sensorflow/internal/broker"
	"github.com/tomtom215/sensorflow/internal/models"
)

// NATSSinkConfig configures the NATS batch publisher.
type NATSSinkConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATSSink publishes each batch as JSON. Publishing is core NATS: a batch
// sent while no subscriber listens is gone.
type NATSSink struct {
	publisher message.Publisher
	subject   string

	mu     sync.RWMutex
	closed bool
}

// NewNATSSink connects the publisher.
func NewNATSSink(cfg NATSSinkConfig) (*NATSSink, error) {
	if cfg.URL == "" || cfg.Subject == "" {
		return nil, errors.New("nats sink needs url and subject")
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}

	logger := broker.NewWatermillLogger("nats-sink")
	natsOpts := []natsgo.Option{
		natsgo.Name("sensorflow-sink"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Batch publisher disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Batch publisher reconnected", map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	return &NATSSink{publisher: pub, subject: cfg.Subject}, nil
}

// Write publishes batch. The message UUID is the batch ID.
func (s *NATSSink) Write(ctx context.Context, batch models.Batch) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch %d: %w", batch.Seq(), err)
	}

	msg := message.NewMessage(batch.ID().String(), payload)
	msg.Metadata.Set("seq", strconv.FormatUint(batch.Seq(), 10))
	msg.Metadata.Set("size", strconv.Itoa(batch.Len()))

	if err := s.publisher.Publish(s.subject, msg); err != nil {
		return fmt.Errorf("publish batch %d: %w", batch.Seq(), err)
	}
	return nil
}

// Close closes the publisher.
func (s *NATSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close nats publisher: %w", err)
	}
	return nil
}

func (s *NATSSink) Name() string {
	return "nats"
}
