package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_ErrorInterface(t *testing.T) {
	err := NewStandardError(ErrorCodeNotFound, "repository not found", nil)
	assert.Equal(t, "repository not found", err.Error())
}

func TestNewRequiredFieldError(t *testing.T) {
	err := NewRequiredFieldError("metric")
	assert.Equal(t, ErrorCodeRequiredField, err.ErrorInfo.Code)
	assert.Contains(t, err.ErrorInfo.Message, "metric")

	detail, ok := err.ErrorInfo.Details.(ValidationDetail)
	require.True(t, ok)
	assert.Equal(t, "metric", detail.Field)
}

func TestNewUnsupportedMetricError(t *testing.T) {
	err := NewUnsupportedMetricError("velocity", []string{"stars", "forks"})
	assert.Equal(t, ErrorCodeUnsupportedMetric, err.ErrorInfo.Code)
	assert.Contains(t, err.ErrorInfo.Message, "velocity")
}

func TestToJSONRPCError_CodeMapping(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrorCodeValidationError, -32602},
		{ErrorCodeRequiredField, -32602},
		{ErrorCodeUnsupportedMetric, -32602},
		{ErrorCodeNotFound, -32601},
		{ErrorCodeRateLimited, -32001},
		{ErrorCodeProviderError, -32002},
		{ErrorCodeTimeout, -32002},
		{ErrorCodeInternalError, -32603},
	}

	for _, tt := range tests {
		resp := NewStandardError(tt.code, "msg", nil).ToJSONRPCError("req-1")
		require.NotNil(t, resp.Error, string(tt.code))
		assert.Equal(t, tt.expected, resp.Error.Code, string(tt.code))
		assert.Equal(t, "req-1", resp.ID)
	}
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewRequiredFieldError("repo").ToHTTPStatus())
	assert.Equal(t, http.StatusNotFound, NewStandardError(ErrorCodeNotFound, "x", nil).ToHTTPStatus())
	assert.Equal(t, http.StatusTooManyRequests, NewRateLimitError(10, "1m", time.Second, 0).ToHTTPStatus())
	assert.Equal(t, http.StatusBadGateway, NewProviderError("upstream", nil).ToHTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, NewInternalError("boom", nil).ToHTTPStatus())
}

func TestWriteHTTPError_RateLimitHeaders(t *testing.T) {
	err := NewRateLimitError(100, "1m", 30*time.Second, 0).WithTraceID("trace-123")

	rec := httptest.NewRecorder()
	err.WriteHTTPError(rec)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "trace-123", rec.Header().Get("X-Trace-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
}

func TestWithSuggestions(t *testing.T) {
	err := NewProviderError("connection refused", nil).
		WithSuggestions([]string{"Check network connectivity to the metrics provider"})

	data, marshalErr := err.ToJSON()
	require.NoError(t, marshalErr)
	assert.Contains(t, string(data), "suggestions")
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsValidationError(NewRequiredFieldError("repo")))
	assert.False(t, IsValidationError(NewInternalError("boom", nil)))
	assert.True(t, IsSystemError(NewProviderError("boom", nil)))
	assert.False(t, IsSystemError(NewRequiredFieldError("repo")))
}
