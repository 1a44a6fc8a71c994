package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeTokenInvalid, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeValidationRequired, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeInsufficientStock, http.StatusUnprocessableEntity},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeUnknown, http.StatusInternalServerError},
		{"ERR_NO_SUCH_CODE", http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		name := tc.code
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetHTTPStatus(tc.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	cases := []struct {
		legacy string
		want   string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"AUTH_REQUIRED", ErrCodeUnauthorized},
		{"PERMISSION_DENIED", ErrCodeForbidden},
		{"TENANT_MISMATCH", ErrCodeForbidden},
		{"INVALID_TRANSITION", ErrCodeInvalidState},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"INSUFFICIENT_STOCK", ErrCodeInsufficientStock},
		{"TOKEN_EXPIRED", ErrCodeTokenExpired},
		{"INVALID_TOKEN", ErrCodeTokenInvalid},
		{"RATE_LIMIT_EXCEEDED", ErrCodeRateLimited},
		{"VALIDATION_ERROR", ErrCodeValidation},
		{"INTERNAL_ERROR", ErrCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.legacy, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeErrorCode(tc.legacy))
		})
	}

	t.Run("standardized codes pass through", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
		assert.Equal(t, ErrCodeConcurrencyConflict, NormalizeErrorCode(ErrCodeConcurrencyConflict))
	})

	t.Run("unknown codes pass through", func(t *testing.T) {
		assert.Equal(t, "SOMETHING_ELSE", NormalizeErrorCode("SOMETHING_ELSE"))
	})
}

// Every published code must carry an HTTP status and the ERR_ prefix,
// otherwise handlers silently fall back to 500.
func TestErrorCodeRegistry(t *testing.T) {
	codes := []string{
		ErrCodeUnauthorized,
		ErrCodeForbidden,
		ErrCodeTokenExpired,
		ErrCodeTokenInvalid,
		ErrCodeNotFound,
		ErrCodeAlreadyExists,
		ErrCodeConflict,
		ErrCodeConcurrencyConflict,
		ErrCodeValidation,
		ErrCodeValidationRequired,
		ErrCodeValidationFormat,
		ErrCodeValidationRange,
		ErrCodeValidationLength,
		ErrCodeInvalidInput,
		ErrCodeInvalidJSON,
		ErrCodeBadRequest,
		ErrCodeRequestTooLarge,
		ErrCodeInvalidState,
		ErrCodeBusinessRule,
		ErrCodeInsufficientStock,
		ErrCodeRateLimited,
		ErrCodeInternal,
		ErrCodeUnknown,
	}

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			assert.Contains(t, ErrorCodeHTTPStatus, code)
			assert.Regexp(t, `^ERR_[A-Z_]+$`, code)
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	t.Run("legacy code is normalized", func(t *testing.T) {
		resp := NewErrorResponse("NOT_FOUND", "Supplier not found")

		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		assert.Equal(t, "Supplier not found", resp.Error.Message)
		assert.False(t, resp.Error.Timestamp.IsZero())
	})

	t.Run("standardized code kept as-is", func(t *testing.T) {
		resp := NewErrorResponse(ErrCodeInsufficientStock, "Not enough stock in source warehouse")
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeInsufficientStock, resp.Error.Code)
	})

	t.Run("timestamp is recent", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		resp := NewErrorResponse(ErrCodeInternal, "boom")
		assert.True(t, resp.Error.Timestamp.After(before))
		assert.True(t, resp.Error.Timestamp.Before(time.Now().Add(time.Second)))
	})
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeConcurrencyConflict, "Purchase order was modified by another request", "req-7f3a")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConcurrencyConflict, resp.Error.Code)
	assert.Equal(t, "req-7f3a", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "warehouse_id", Message: "Invalid UUID format"},
		{Field: "quantity", Message: "This field is required"},
	}
	resp := NewValidationErrorResponse("Request validation failed", "req-9b21", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-9b21", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "warehouse_id", resp.Error.Details[0].Field)
	assert.Equal(t, "quantity", resp.Error.Details[1].Field)
}

func TestNewErrorResponseWithHelp(t *testing.T) {
	resp := NewErrorResponseWithHelp(ErrCodeInvalidState, "Draft orders cannot be shipped", "req-4410", "Confirm the quote before shipping")

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidState, resp.Error.Code)
	assert.Equal(t, "req-4410", resp.Error.RequestID)
	assert.Equal(t, "Confirm the quote before shipping", resp.Error.Help)
}

func TestErrorResponseJSONRoundTrip(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Routing rule not found", "req-1")

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "Routing rule not found", decoded.Error.Message)
	assert.Equal(t, "req-1", decoded.Error.RequestID)
}

func TestNewSuccessResponse(t *testing.T) {
	payload := map[string]string{"id": "af3c2d90-0a51-44b0-9d3c-62d2f1a1c001"}
	resp := NewSuccessResponse(payload)

	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, payload, resp.Data)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	t.Run("computes total pages", func(t *testing.T) {
		resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 100, 1, 10)

		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(100), resp.Meta.Total)
		assert.Equal(t, 1, resp.Meta.Page)
		assert.Equal(t, 10, resp.Meta.PageSize)
		assert.Equal(t, 10, resp.Meta.TotalPages)
	})

	cases := []struct {
		name      string
		total     int64
		pageSize  int
		wantSize  int
		wantPages int
	}{
		{"partial last page", 101, 10, 10, 11},
		{"single page", 5, 10, 10, 1},
		{"empty result", 0, 10, 10, 0},
		{"zero page size defaults", 40, 0, 20, 2},
		{"negative page size defaults", 40, -5, 20, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta(nil, tc.total, 1, tc.pageSize)
			require.NotNil(t, resp.Meta)
			assert.Equal(t, tc.wantSize, resp.Meta.PageSize)
			assert.Equal(t, tc.wantPages, resp.Meta.TotalPages)
		})
	}
}
