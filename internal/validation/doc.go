// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

// Package validation wraps go-playground/validator v10 with a process-wide
// validator instance, sensorflow's custom tags and readable error messages.
//
// Field names in errors come from the koanf tag, falling back to the json
// tag, so a failed config check reads "batch_size must be at least 1" rather
// than naming the Go field.
//
// Custom tags:
//   - ws_url: absolute ws:// or wss:// URL
//   - nats_url: absolute nats:// or tls:// URL
//
// Example:
//
//	type listQuery struct {
//	    From  uint64 `json:"from"`
//	    Limit int    `json:"limit" validate:"min=1,max=100"`
//	}
//	if err := validation.ValidateStruct(&q); err != nil {
//	    apiErr := err.ToAPIError()
//	    ...
//	}
package validation
