// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tidewatch/tidewatch/internal/logging"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *APIError   `json:"error,omitempty"`
}

// APIError carries a machine-readable code plus a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the API. Only configuration and transport
// failures surface to clients; partial collection results are success.
const (
	CodeConfigError    = "CONFIG_ERROR"
	CodeTransportError = "TRANSPORT_ERROR"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL_ERROR"
	CodeUpstreamBusy   = "UPSTREAM_BUSY"
)

// respondJSON writes the envelope with proper headers.
func respondJSON(w http.ResponseWriter, status int, resp *APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

// respondData writes a success envelope.
func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, &APIResponse{Status: "ok", Data: data})
}

// respondError writes an error envelope, logging server-side faults.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		logging.Error().Str("code", code).Err(err).Msg("API error")
	}
	respondJSON(w, status, &APIResponse{
		Status: "error",
		Error:  &APIError{Code: code, Message: message},
	})
}
