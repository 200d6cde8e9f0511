// ABOUTME: Standardized error response types and helpers for HTTP handlers
// ABOUTME: Normalizes thrown and returned failures into one JSON envelope

package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the standardized error response structure used across all
// handlers. Expected failure responses and thrown transport errors converge
// on this shape so clients never need to distinguish the two.
type ErrorResponse struct {
	Code    string `json:"code"`              // Machine-readable error code (e.g., "invalid_request", "not_found")
	Message string `json:"message"`           // Human-readable error message
	Status  int    `json:"status"`            // HTTP status code
	Field   string `json:"field,omitempty"`   // Optional: field that caused the error (for validation errors)
	Details string `json:"details,omitempty"` // Optional: additional error details
}

// WriteError writes a standardized error response to the HTTP response writer.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
	})
}

// WriteErrorWithField writes an error response naming the field that caused
// it. Use this for single-field validation errors.
func WriteErrorWithField(w http.ResponseWriter, status int, code, message, field string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
		Field:   field,
	})
}

// WriteErrorWithDetails writes an error response with extra context.
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
		Details: details,
	})
}

// writeErrorResponse serializes and writes the ErrorResponse.
func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}

// CommonErrorCodes defines standard error codes used across handlers
const (
	// Client errors (4xx)
	ErrInvalidRequest   = "invalid_request"
	ErrInvalidBody      = "invalid_request_body"
	ErrMissingField     = "missing_field"
	ErrValidationFailed = "validation_failed"
	ErrNotFound         = "not_found"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrConflict         = "conflict"
	ErrDuplicateFiles   = "duplicate_files"
	ErrSessionBusy      = "session_busy"

	// Server errors (5xx)
	ErrInternal           = "internal_error"
	ErrDatabaseError      = "database_error"
	ErrServiceUnavailable = "service_unavailable"
	ErrNotImplemented     = "not_implemented"
)
