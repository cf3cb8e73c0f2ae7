// Package errors provides standardized error handling across the MCP and
// HTTP surfaces of the server.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fredcamaral/gomcp-sdk/protocol"
)

// ErrorCode represents semantic error codes for consistent error handling
type ErrorCode string

const (
	// Validation errors
	ErrorCodeValidationError     ErrorCode = "VALIDATION_ERROR"
	ErrorCodeRequiredField       ErrorCode = "REQUIRED_FIELD"
	ErrorCodeInvalidValue        ErrorCode = "INVALID_VALUE"
	ErrorCodeUnsupportedMetric   ErrorCode = "UNSUPPORTED_METRIC"
	ErrorCodeUnsupportedPlatform ErrorCode = "UNSUPPORTED_PLATFORM"

	// Resource errors
	ErrorCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrorCodeRepositoryNotFound ErrorCode = "REPOSITORY_NOT_FOUND"

	// Rate limiting errors
	ErrorCodeRateLimited ErrorCode = "RATE_LIMITED"

	// System and upstream errors
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout            ErrorCode = "TIMEOUT"
	ErrorCodeProviderError      ErrorCode = "PROVIDER_ERROR"
)

// StandardError is the unified error structure returned on every surface.
type StandardError struct {
	ErrorInfo ErrorDetails `json:"error"`
}

// Error implements the Go error interface
func (e *StandardError) Error() string {
	return e.ErrorInfo.Message
}

// ErrorDetails contains the detailed error information
type ErrorDetails struct {
	Code        ErrorCode   `json:"code"`
	Message     string      `json:"message"`
	Details     interface{} `json:"details,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
	TraceID     string      `json:"trace_id,omitempty"`
}

// ValidationDetail provides specific validation error information
type ValidationDetail struct {
	Field  string      `json:"field"`
	Reason string      `json:"reason"`
	Value  interface{} `json:"value,omitempty"`
}

// RateLimitDetail provides rate limiting error information
type RateLimitDetail struct {
	Limit      int           `json:"limit"`
	Window     string        `json:"window"`
	RetryAfter time.Duration `json:"retry_after"`
	Remaining  int           `json:"remaining"`
}

// NewStandardError creates a new standardized error
func NewStandardError(code ErrorCode, message string, details interface{}) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// NewValidationError creates a validation error with field details
func NewValidationError(field, reason string, value interface{}) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeValidationError,
			Message: fmt.Sprintf("Validation failed for field '%s': %s", field, reason),
			Details: ValidationDetail{
				Field:  field,
				Reason: reason,
				Value:  value,
			},
		},
	}
}

// NewRequiredFieldError creates an error for missing required fields
func NewRequiredFieldError(field string) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeRequiredField,
			Message: fmt.Sprintf("Required field '%s' is missing", field),
			Details: ValidationDetail{
				Field:  field,
				Reason: "missing_required_field",
			},
		},
	}
}

// NewUnsupportedMetricError reports a metric name the provider does not serve.
func NewUnsupportedMetricError(metric string, supported []string) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeUnsupportedMetric,
			Message: fmt.Sprintf("Unsupported metric '%s'", metric),
			Details: map[string]interface{}{
				"metric":    metric,
				"supported": supported,
			},
		},
	}
}

// NewRateLimitError creates a rate limiting error
func NewRateLimitError(limit int, window string, retryAfter time.Duration, remaining int) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeRateLimited,
			Message: fmt.Sprintf("Rate limit exceeded: %d requests per %s", limit, window),
			Details: RateLimitDetail{
				Limit:      limit,
				Window:     window,
				RetryAfter: retryAfter,
				Remaining:  remaining,
			},
		},
	}
}

// NewProviderError wraps a failure from the upstream metrics provider.
func NewProviderError(message string, originalError error) *StandardError {
	details := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if originalError != nil {
		details["original_error"] = originalError.Error()
	}
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeProviderError,
			Message: message,
			Details: details,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, originalError error) *StandardError {
	details := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if originalError != nil {
		details["original_error"] = originalError.Error()
	}
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeInternalError,
			Message: message,
			Details: details,
		},
	}
}

// WithTraceID adds a trace ID to the error for debugging
func (e *StandardError) WithTraceID(traceID string) *StandardError {
	e.ErrorInfo.TraceID = traceID
	return e
}

// WithSuggestions attaches actionable suggestions for the caller.
func (e *StandardError) WithSuggestions(suggestions []string) *StandardError {
	e.ErrorInfo.Suggestions = suggestions
	return e
}

// ToJSONRPCError converts StandardError to JSON-RPC error format
func (e *StandardError) ToJSONRPCError(id interface{}) *protocol.JSONRPCResponse {
	var rpcCode int
	switch e.ErrorInfo.Code {
	case ErrorCodeValidationError, ErrorCodeRequiredField, ErrorCodeInvalidValue,
		ErrorCodeUnsupportedMetric, ErrorCodeUnsupportedPlatform:
		rpcCode = -32602 // Invalid params
	case ErrorCodeNotFound, ErrorCodeRepositoryNotFound:
		rpcCode = -32601 // Method not found (closest equivalent)
	case ErrorCodeRateLimited:
		rpcCode = -32001 // Server error (custom range)
	case ErrorCodeServiceUnavailable, ErrorCodeTimeout, ErrorCodeProviderError:
		rpcCode = -32002 // Server error (custom range)
	default:
		rpcCode = -32603 // Internal error (fallback)
	}

	return &protocol.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &protocol.JSONRPCError{
			Code:    rpcCode,
			Message: e.ErrorInfo.Message,
			Data:    e,
		},
	}
}

// ToHTTPStatus maps StandardError to appropriate HTTP status code
func (e *StandardError) ToHTTPStatus() int {
	switch e.ErrorInfo.Code {
	case ErrorCodeValidationError, ErrorCodeRequiredField, ErrorCodeInvalidValue,
		ErrorCodeUnsupportedMetric, ErrorCodeUnsupportedPlatform:
		return http.StatusBadRequest
	case ErrorCodeNotFound, ErrorCodeRepositoryNotFound:
		return http.StatusNotFound
	case ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeTimeout:
		return http.StatusRequestTimeout
	case ErrorCodeProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts StandardError to JSON bytes
func (e *StandardError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WriteHTTPError writes StandardError as HTTP response
func (e *StandardError) WriteHTTPError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")

	if e.ErrorInfo.TraceID != "" {
		w.Header().Set("X-Trace-ID", e.ErrorInfo.TraceID)
	}

	if e.ErrorInfo.Code == ErrorCodeRateLimited {
		if rateLimitDetail, ok := e.ErrorInfo.Details.(RateLimitDetail); ok {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rateLimitDetail.RetryAfter.Seconds()))
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rateLimitDetail.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", rateLimitDetail.Remaining))
		}
	}

	w.WriteHeader(e.ToHTTPStatus())

	jsonBytes, _ := e.ToJSON()
	_, _ = w.Write(jsonBytes)
}

// Predefined common errors for convenience
var (
	ErrRepositoryRequired = NewRequiredFieldError("repo")
	ErrOwnerRequired      = NewRequiredFieldError("owner")
	ErrMetricRequired     = NewRequiredFieldError("metric")

	ErrServiceUnavailable = NewStandardError(ErrorCodeServiceUnavailable, "Service temporarily unavailable", nil)
)

// IsValidationError checks if the error is a validation-related error
func IsValidationError(err *StandardError) bool {
	switch err.ErrorInfo.Code {
	case ErrorCodeValidationError, ErrorCodeRequiredField, ErrorCodeInvalidValue,
		ErrorCodeUnsupportedMetric, ErrorCodeUnsupportedPlatform:
		return true
	}
	return false
}

// IsSystemError checks if the error originated in the server or upstream.
func IsSystemError(err *StandardError) bool {
	switch err.ErrorInfo.Code {
	case ErrorCodeInternalError, ErrorCodeServiceUnavailable, ErrorCodeTimeout, ErrorCodeProviderError:
		return true
	}
	return false
}
