package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/BradenHooton/rebelbudget/internal/ratelimit"
	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
)

// WriteAuthError maps a service error onto the JSON error envelope.
// Anything it does not recognise is logged and answered with 500.
func WriteAuthError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var locked *models.AccountLockedError
	var limited *ratelimit.RateLimitError
	var weak *models.WeakPasswordError

	switch {
	case errors.As(err, &locked):
		pkghttp.WriteLocked(w, "Account temporarily locked after too many failed login attempts", locked.Until, time.Now())
	case errors.As(err, &limited):
		pkghttp.WriteTooManyRequests(w, "Too many requests, please try again later", limited.RetryAfter)
	case errors.As(err, &weak):
		pkghttp.WriteError(w, http.StatusBadRequest, "weak_password", weak.Reason)

	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, models.ErrTokenExpired):
		pkghttp.WriteError(w, http.StatusUnauthorized, "token_expired", "Token has expired, please log in again")
	case errors.Is(err, models.ErrInvalidToken):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid token")
	case errors.Is(err, models.ErrUnauthenticated):
		pkghttp.WriteUnauthorized(w, "Authentication required")
	case errors.Is(err, models.ErrAccountDisabled):
		pkghttp.WriteError(w, http.StatusForbidden, "account_disabled", "Account is disabled")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Insufficient permissions")
	case errors.Is(err, models.ErrEmailTaken):
		pkghttp.WriteError(w, http.StatusConflict, "email_taken", "Email is already registered")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not found")

	default:
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
