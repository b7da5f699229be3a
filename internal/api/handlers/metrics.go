// Package handlers provides HTTP request handlers for the metricsd API.
// This file implements the metrics management endpoints: dump, single-scope
// get, instrument listing, enable/disable toggling and the self-test.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/anstrom/metricsd/internal/errors"
	"github.com/anstrom/metricsd/internal/metrics"
)

// MetricsHandler handles metrics management endpoints.
type MetricsHandler struct {
	manager  metrics.API
	logger   *slog.Logger
	validate *validator.Validate
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(manager metrics.API, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{
		manager:  manager,
		logger:   logger.With("handler", "metrics"),
		validate: validator.New(),
	}
}

// EnableRequest is the payload for the enable/disable endpoint. All three
// fields must be present; Status uses a pointer so an absent field is
// distinguishable from an explicit false.
type EnableRequest struct {
	ScopeName      string `json:"scope_name" validate:"required"`
	InstrumentName string `json:"instrument_name" validate:"required"`
	Status         *bool  `json:"status" validate:"required"`
}

// ListResponse is the payload of the instrument listing endpoint.
type ListResponse struct {
	Instruments []metrics.InstrumentInfo `json:"instruments"`
}

// Dump returns a snapshot of all instruments' current values.
func (h *MetricsHandler) Dump(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestIDFromContext(r.Context())
	h.logger.Debug("Dump requested", "request_id", requestID)

	writeJSON(w, r, http.StatusOK, h.manager.Dump())
}

// GetScope returns the snapshot of a single scope.
func (h *MetricsHandler) GetScope(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestIDFromContext(r.Context())
	scopeName := mux.Vars(r)["scope"]
	h.logger.Debug("Scope dump requested", "request_id", requestID, "scope", scopeName)

	snap, err := h.manager.DumpScope(scopeName)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

// ListInstruments returns identity and enabled state for every registered
// instrument.
func (h *MetricsHandler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestIDFromContext(r.Context())
	h.logger.Debug("Instrument list requested", "request_id", requestID)

	writeJSON(w, r, http.StatusOK, ListResponse{
		Instruments: h.manager.ListInstruments(),
	})
}

// Enable toggles the enabled state of a (scope, instrument) pair.
func (h *MetricsHandler) Enable(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestIDFromContext(r.Context())

	var req EnableRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	// Field-presence validation mirrors the manager's own name checks so
	// the caller gets the same distinct messages for a missing field.
	if err := h.validate.Struct(&req); err != nil {
		switch {
		case req.ScopeName == "":
			writeError(w, r, http.StatusBadRequest, errors.ErrMissingScopeName())
		case req.InstrumentName == "":
			writeError(w, r, http.StatusBadRequest, errors.ErrMissingInstrumentName())
		default:
			writeError(w, r, http.StatusBadRequest,
				errors.NewMetricError(errors.CodeInvalidArgument, "missing status"))
		}
		return
	}

	if err := h.manager.Enable(req.ScopeName, req.InstrumentName, *req.Status); err != nil {
		h.logger.Warn("Enable failed",
			"request_id", requestID,
			"scope", req.ScopeName,
			"instrument", req.InstrumentName,
			"error", err)
		writeManagerError(w, r, err)
		return
	}

	h.logger.Info("Instrument toggled",
		"request_id", requestID,
		"scope", req.ScopeName,
		"instrument", req.InstrumentName,
		"enabled", *req.Status)
	writeOK(w, r)
}

// Test runs the manager self-test.
func (h *MetricsHandler) Test(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestIDFromContext(r.Context())
	h.logger.Debug("Self-test requested", "request_id", requestID)

	if err := h.manager.SelfTest(); err != nil {
		h.logger.Error("Self-test failed", "request_id", requestID, "error", err)
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeOK(w, r)
}
