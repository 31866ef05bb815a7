package http

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error       string     `json:"error"`                  // Machine-readable error kind
	Message     string     `json:"message"`                // Human-readable message
	Details     string     `json:"details,omitempty"`      // Optional additional context
	RetryAfter  int        `json:"retry_after,omitempty"`  // Seconds to wait before retrying
	LockedUntil *time.Time `json:"locked_until,omitempty"` // Set on account_locked
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

// WriteErrorWithRetry writes a JSON error response and a Retry-After header.
// retryAfter is rounded up to whole seconds, minimum one.
func WriteErrorWithRetry(w http.ResponseWriter, statusCode int, errorCode, message, details string, retryAfter time.Duration) {
	seconds := RetryAfterSeconds(retryAfter)
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	WriteJSON(w, statusCode, ErrorResponse{
		Error:      errorCode,
		Message:    message,
		Details:    details,
		RetryAfter: seconds,
	})
}

// RetryAfterSeconds converts d to the whole number of seconds a client should wait
func RetryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthenticated", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string, retryAfter time.Duration) {
	WriteErrorWithRetry(w, http.StatusTooManyRequests, "rate_limited", message, "", retryAfter)
}

// WriteLocked writes a 423 account_locked response. Retry-After counts
// down from now to until.
func WriteLocked(w http.ResponseWriter, message string, until, now time.Time) {
	seconds := RetryAfterSeconds(until.Sub(now))
	lockedUntil := until.UTC()
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	WriteJSON(w, http.StatusLocked, ErrorResponse{
		Error:       "account_locked",
		Message:     message,
		RetryAfter:  seconds,
		LockedUntil: &lockedUntil,
	})
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
