// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sensorflow"

var (
	// Ingest metrics
	ReadingsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_received_total",
			Help:      "Per-axis values appended to the ingest buffer",
		},
		[]string{"axis"},
	)

	MalformedPayloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_payloads_total",
			Help:      "Payloads dropped because they could not be decoded",
		},
		[]string{"connector"},
	)

	BufferLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_length",
			Help:      "Current length of each ingest buffer sequence",
		},
		[]string{"sequence"}, // "x", "y", "z", "t"
	)

	BufferAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_available_samples",
			Help:      "Aligned samples available for extraction",
		},
	)

	BufferHighWaterAlarms = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_high_water_alarms_total",
			Help:      "Times the ingest buffer crossed its high-water mark",
		},
	)

	// Batch and dispatch metrics
	BatchesExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_extracted_total",
			Help:      "Batches carved from the ingest buffer",
		},
	)

	SamplesExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_extracted_total",
			Help:      "Samples removed from the ingest buffer as part of a batch",
		},
	)

	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Batch dispatch outcomes",
		},
		[]string{"outcome"}, // "ok", "error", "dropped"
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent writing one batch to the persistence sink",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
	)

	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_queue_depth",
			Help:      "Batches waiting for the dispatch worker",
		},
	)

	SinkWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_write_duration_seconds",
			Help:      "Per-sink batch write latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	SinkWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_write_errors_total",
			Help:      "Failed batch writes per sink",
		},
		[]string{"sink"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state changes",
		},
		[]string{"name", "from", "to"},
	)

	// Connection metrics
	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Telemetry connection state (0=disconnected, 1=connecting, 2=streaming, 3=failed)",
		},
	)

	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Reconnect supervisor state transitions",
		},
		[]string{"from", "to"},
	)

	ReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Connection attempts made after a failure",
		},
	)

	BackoffDelay = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backoff_delay_seconds",
			Help:      "Delay applied before the most recent reconnect attempt",
		},
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Connected visualization clients",
		},
	)

	WSBroadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_broadcast_dropped_total",
			Help:      "Broadcasts dropped because the hub channel was full",
		},
	)

	WSMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "Messages broadcast to visualization clients",
		},
		[]string{"type"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route"},
	)

	// Archive metrics
	ArchiveGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_gc_runs_total",
			Help:      "Archive value-log garbage collection runs",
		},
		[]string{"result"}, // "rewritten", "noop", "error"
	)
)

// RecordReading counts one appended per-axis value.
func RecordReading(axis string) {
	ReadingsReceived.WithLabelValues(axis).Inc()
}

// RecordMalformedPayload counts one dropped payload.
func RecordMalformedPayload(connector string) {
	MalformedPayloads.WithLabelValues(connector).Inc()
}

// UpdateBufferGauges publishes buffer sequence lengths.
func UpdateBufferGauges(x, y, z, t, available int) {
	BufferLength.WithLabelValues("x").Set(float64(x))
	BufferLength.WithLabelValues("y").Set(float64(y))
	BufferLength.WithLabelValues("z").Set(float64(z))
	BufferLength.WithLabelValues("t").Set(float64(t))
	BufferAvailable.Set(float64(available))
}

// RecordHighWaterAlarm counts one high-water crossing.
func RecordHighWaterAlarm() {
	BufferHighWaterAlarms.Inc()
}

// RecordBatchExtracted counts one carved batch of size samples.
func RecordBatchExtracted(size int) {
	BatchesExtracted.Inc()
	SamplesExtracted.Add(float64(size))
}

// RecordDispatch records a dispatch outcome and, for attempted writes, its latency.
func RecordDispatch(duration time.Duration, err error) {
	DispatchDuration.Observe(duration.Seconds())
	if err != nil {
		DispatchTotal.WithLabelValues("error").Inc()
		return
	}
	DispatchTotal.WithLabelValues("ok").Inc()
}

// RecordDispatchDropped counts a batch dropped before any write was attempted.
func RecordDispatchDropped() {
	DispatchTotal.WithLabelValues("dropped").Inc()
}

// RecordSinkWrite records one sink write.
func RecordSinkWrite(sink string, duration time.Duration, err error) {
	SinkWriteDuration.WithLabelValues(sink).Observe(duration.Seconds())
	if err != nil {
		SinkWriteErrors.WithLabelValues(sink).Inc()
	}
}

// RecordCircuitBreakerTransition records a breaker state change.
// States use gobreaker's numbering: 0 closed, 1 half-open, 2 open.
func RecordCircuitBreakerTransition(name, from, to string, toState int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(toState))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordStateTransition records a connection state change.
func RecordStateTransition(from, to string, toState int) {
	ConnectionState.Set(float64(toState))
	StateTransitions.WithLabelValues(from, to).Inc()
}

// RecordReconnectAttempt records a retry after delay.
func RecordReconnectAttempt(delay time.Duration) {
	ReconnectAttempts.Inc()
	BackoffDelay.Set(delay.Seconds())
}

// RecordWSMessage counts one broadcast message of the given type.
func RecordWSMessage(messageType string) {
	WSMessages.WithLabelValues(messageType).Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordArchiveGC records the outcome of one value-log GC run.
func RecordArchiveGC(result string) {
	ArchiveGCRuns.WithLabelValues(result).Inc()
}
