// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/sensorflow/internal/broker"
)

// NATSConfig configures a NATSConnector.
type NATSConfig struct {
	URL            string
	Subject        string
	QueueGroup     string
	ConnectTimeout time.Duration
	CloseTimeout   time.Duration
}

// NATSConnector receives payloads published on a core NATS subject.
// Client-side reconnects are disabled so that a dropped connection surfaces
// as a Stream error and the reconnect supervisor applies its own backoff.
type NATSConnector struct {
	cfg NATSConfig

	mu         sync.Mutex
	subscriber message.Subscriber
	messages   <-chan *message.Message
	lost       chan error
	cancel     context.CancelFunc
}

// NewNATSConnector validates cfg and returns a connector.
func NewNATSConnector(cfg NATSConfig) (*NATSConnector, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is required")
	}
	if cfg.Subject == "" {
		return nil, errors.New("nats subject is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 5 * time.Second
	}
	return &NATSConnector{cfg: cfg}, nil
}

// Connect opens the NATS connection and subscribes to the subject.
func (c *NATSConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscriber != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lost := make(chan error, 1)
	signal := func(err error) {
		select {
		case lost <- err:
		default:
		}
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("sensorflow-source"),
		natsgo.Timeout(c.cfg.ConnectTimeout),
		natsgo.NoReconnect(),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err == nil {
				err = ErrStreamClosed
			}
			signal(fmt.Errorf("%w: %v", ErrConnectionLost, err))
		}),
		natsgo.ClosedHandler(func(_ *natsgo.Conn) {
			signal(ErrStreamClosed)
		}),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              c.cfg.URL,
		QueueGroupPrefix: c.cfg.QueueGroup,
		SubscribersCount: 1,
		CloseTimeout:     c.cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, broker.NewWatermillLogger("nats-source"))
	if err != nil {
		return fmt.Errorf("create nats subscriber: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	messages, err := sub.Subscribe(subCtx, c.cfg.Subject)
	if err != nil {
		cancel()
		_ = sub.Close()
		return fmt.Errorf("subscribe to %s: %w", c.cfg.Subject, err)
	}

	c.subscriber = sub
	c.messages = messages
	c.lost = lost
	c.cancel = cancel
	return nil
}

// Stream delivers message payloads in arrival order. Each message is acked
// after delivery; the subscriber waits for the ack before handing out the
// next one.
func (c *NATSConnector) Stream(ctx context.Context, deliver DeliverFunc) error {
	c.mu.Lock()
	messages, lost := c.messages, c.lost
	c.mu.Unlock()
	if messages == nil {
		return ErrNotConnected
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-lost:
			return err
		case msg, ok := <-messages:
			if !ok {
				select {
				case err := <-lost:
					return err
				default:
					return ErrStreamClosed
				}
			}
			deliver(msg.Payload)
			msg.Ack()
		}
	}
}

// Close tears down the subscription and connection.
func (c *NATSConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscriber == nil {
		return nil
	}
	c.cancel()
	err := c.subscriber.Close()
	c.subscriber = nil
	c.messages = nil
	c.lost = nil
	c.cancel = nil
	if err != nil {
		return fmt.Errorf("close nats subscriber: %w", err)
	}
	return nil
}

func (c *NATSConnector) String() string {
	return "nats"
}
