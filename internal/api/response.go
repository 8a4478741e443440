// Package api holds the JSON response helpers shared by the shim's HTTP
// handlers. Errors use the OpenAI error envelope so OpenAI clients can
// surface them unchanged.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the top-level error response wrapper.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail holds the error message, type, and code.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("Failed to encode response", "error", err)
	}
}

// WriteError writes an error envelope. The type and code are derived from
// the status so clients can branch on them.
func WriteError(w http.ResponseWriter, status int, message string) {
	errType, code := errorKind(status)
	WriteJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errType,
			Code:    code,
		},
	})
}

func errorKind(status int) (string, string) {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request_error", "bad_request"
	case http.StatusUnauthorized:
		return "authentication_error", "unauthorized"
	case http.StatusForbidden:
		return "permission_error", "forbidden"
	case http.StatusNotFound:
		return "invalid_request_error", "not_found"
	case http.StatusMethodNotAllowed:
		return "invalid_request_error", "method_not_allowed"
	case http.StatusServiceUnavailable:
		return "service_unavailable", "service_disabled"
	case http.StatusGatewayTimeout:
		return "timeout_error", "timeout"
	default:
		return "internal_error", "internal_error"
	}
}
