package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Empty(t, resp.Details)
	assert.Zero(t, resp.RetryAfter)
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 423, "account_locked", "Account locked", "2026-01-01T12:15:00Z")

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 423, w.Code)
	assert.Equal(t, "2026-01-01T12:15:00Z", resp.Details)
}

func TestWriteErrorWithRetry_SetsHeaderAndBody(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithRetry(w, 429, "rate_limited", "Slow down", "", 1500*time.Millisecond)

	assert.Equal(t, 429, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.RetryAfter)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, pkghttp.RetryAfterSeconds(0))
	assert.Equal(t, 1, pkghttp.RetryAfterSeconds(-time.Second))
	assert.Equal(t, 1, pkghttp.RetryAfterSeconds(time.Millisecond))
	assert.Equal(t, 900, pkghttp.RetryAfterSeconds(15*time.Minute))
}

func TestCommonErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *httptest.ResponseRecorder)
		status int
		kind   string
	}{
		{"bad request", func(w *httptest.ResponseRecorder) { pkghttp.WriteBadRequest(w, "m") }, 400, "bad_request"},
		{"unauthorized", func(w *httptest.ResponseRecorder) { pkghttp.WriteUnauthorized(w, "m") }, 401, "unauthenticated"},
		{"forbidden", func(w *httptest.ResponseRecorder) { pkghttp.WriteForbidden(w, "m") }, 403, "forbidden"},
		{"not found", func(w *httptest.ResponseRecorder) { pkghttp.WriteNotFound(w, "m") }, 404, "not_found"},
		{"conflict", func(w *httptest.ResponseRecorder) { pkghttp.WriteConflict(w, "m") }, 409, "conflict"},
		{"too many requests", func(w *httptest.ResponseRecorder) { pkghttp.WriteTooManyRequests(w, "m", time.Minute) }, 429, "rate_limited"},
		{"internal", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w, "m") }, 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Error)
			assert.Equal(t, "m", resp.Message)
		})
	}
}

func TestWriteLocked(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(15 * time.Minute)
	w := httptest.NewRecorder()

	pkghttp.WriteLocked(w, "Account temporarily locked", until, now)

	assert.Equal(t, 423, w.Code)
	assert.Equal(t, "900", w.Header().Get("Retry-After"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "account_locked", resp.Error)
	assert.Equal(t, 900, resp.RetryAfter)
	require.NotNil(t, resp.LockedUntil)
	assert.True(t, until.Equal(*resp.LockedUntil))
}
