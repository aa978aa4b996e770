// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/sensorflow/internal/sink"
	"github.com/tomtom215/sensorflow/internal/validation"
)

func (h *Handler) archiveDisabled(w http.ResponseWriter, r *http.Request) bool {
	if h.deps.Archive != nil {
		return false
	}
	respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Batch archive is not enabled", nil)
	return true
}

// GetBatch returns one archived batch by sequence number.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	if h.archiveDisabled(w, r) {
		return
	}

	seq, err := parseSeq(chi.URLParam(r, "seq"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	h.writeBatch(w, r, seq)
}

// LatestBatch returns the most recently archived batch.
func (h *Handler) LatestBatch(w http.ResponseWriter, r *http.Request) {
	if h.archiveDisabled(w, r) {
		return
	}

	seq, err := h.deps.Archive.LatestSeq()
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to read archive", err)
		return
	}
	if seq == 0 {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "No batches archived yet", nil)
		return
	}

	h.writeBatch(w, r, seq)
}

func (h *Handler) writeBatch(w http.ResponseWriter, r *http.Request, seq uint64) {
	batch, err := h.deps.Archive.Get(seq)
	switch {
	case errors.Is(err, sink.ErrBatchNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Batch not found", nil)
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to read archive", err)
	default:
		respondData(w, r, http.StatusOK, batch)
	}
}

// ListBatches pages through the archive in sequence order.
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	if h.archiveDisabled(w, r) {
		return
	}

	req, err := parseBatchListRequest(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	batches, err := h.deps.Archive.Range(req.From, req.Limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to read archive", err)
		return
	}

	count := len(batches)
	meta := newMetadata(r)
	meta.Count = &count
	if batches == nil {
		respondJSON(w, http.StatusOK, &Response{Status: "success", Data: []struct{}{}, Metadata: meta})
		return
	}
	respondJSON(w, http.StatusOK, &Response{Status: "success", Data: batches, Metadata: meta})
}
