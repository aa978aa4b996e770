// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package api

import (
	"fmt"
	"net/http"
	"strconv"
)

const defaultBatchListLimit = 10

// BatchListRequest holds the validated query of GET /api/v1/batches.
type BatchListRequest struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit" validate:"min=1,max=100"`
}

// parseBatchListRequest reads from and limit. Syntax errors are returned;
// range checks are left to validation.
func parseBatchListRequest(r *http.Request) (BatchListRequest, error) {
	req := BatchListRequest{Limit: defaultBatchListLimit}
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		from, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("from must be a non-negative integer, got %q", v)
		}
		req.From = from
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("limit must be an integer, got %q", v)
		}
		req.Limit = limit
	}
	return req, nil
}

func parseSeq(raw string) (uint64, error) {
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sequence number must be a non-negative integer, got %q", raw)
	}
	return seq, nil
}
