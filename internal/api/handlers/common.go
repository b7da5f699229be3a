// Package handlers provides HTTP request handlers for the metricsd API.
// This file contains common utilities shared across all handlers to keep
// request parsing and response encoding consistent.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anstrom/metricsd/internal/api/middleware"
	"github.com/anstrom/metricsd/internal/errors"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// StatusResponse represents a bare status-OK response.
type StatusResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

func getRequestIDFromContext(ctx context.Context) string {
	return middleware.GetRequestID(ctx)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		requestID := getRequestIDFromContext(r.Context())
		slog.Error("Failed to encode JSON response",
			"request_id", requestID,
			"error", err)
	}
}

// writeOK writes a status-OK response.
func writeOK(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, StatusResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		RequestID: getRequestIDFromContext(r.Context()),
	})
}

// writeError writes an error response. The error's message text is
// propagated verbatim; the HTTP status is derived from the error code.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
		RequestID: getRequestIDFromContext(r.Context()),
	}
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		response.Code = string(code)
	}

	writeJSON(w, r, statusCode, response)
}

// writeManagerError maps a metrics manager error onto an HTTP status.
func writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	switch errors.GetCode(err) {
	case errors.CodeInvalidArgument:
		writeError(w, r, http.StatusBadRequest, err)
	case errors.CodeNotFound:
		writeError(w, r, http.StatusNotFound, err)
	case errors.CodeKindConflict:
		writeError(w, r, http.StatusConflict, err)
	default:
		writeError(w, r, http.StatusInternalServerError, err)
	}
}

// parseJSON parses a JSON request body into the provided destination.
func parseJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("request body is empty")
	}

	// Cap the request size; enable/test payloads are tiny.
	const maxRequestSize = 1 << 20
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestSize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
