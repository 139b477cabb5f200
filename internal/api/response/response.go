// Package response provides utilities for sending consistent HTTP responses.
// It includes helpers for JSON responses and standardized error responses.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ErrorResponse represents a structured error response returned by the API.
// Details is optional: a string, or a field -> message map for validation errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
// If data is nil, only the status code is sent (useful for 204 No Content).
// Encoding errors are logged; the status code has already been written.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	if data == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
	}
}

// RespondError sends a structured error response with the given status code.
// The message should be a user-friendly error description.
//
// Example:
//
//	response.RespondError(w, http.StatusBadRequest, "validation failed", vErr.Fields)
//	response.RespondError(w, http.StatusNotFound, "transaction not found", "")
func RespondError(w http.ResponseWriter, status int, message string, details any) {
	if s, ok := details.(string); ok && s == "" {
		details = nil
	}
	RespondJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
