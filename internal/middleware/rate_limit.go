package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/auth"
	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/BradenHooton/rebelbudget/internal/ratelimit"
	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
	"github.com/go-chi/httprate"
)

// AuditRecorder receives rate limit rejections
type AuditRecorder interface {
	Record(ctx context.Context, eventType string, subjectID *string, details map[string]string)
}

// Limiter is the per-key gate consulted for every request
type Limiter interface {
	Allow(key string) error
	Limit() int
	Remaining(key string) int
}

// RateLimitGate rejects requests from a client key that has used its
// allowance, answering 429 with Retry-After. Every decision carries
// X-RateLimit-Limit and X-RateLimit-Remaining. The key is the client IP; a
// caller already resolved by OptionalAuthMiddleware is named in the audit event.
func RateLimitGate(limiter Limiter, ipConfig *pkghttp.IPConfig, audit AuditRecorder, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := pkghttp.ExtractClientIP(r, ipConfig)

			err := limiter.Allow(key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			var rlErr *ratelimit.RateLimitError
			if !errors.As(err, &rlErr) {
				// Unknown limiter failure: fail closed.
				logger.Error("rate limiter error", slog.Any("error", err))
				pkghttp.WriteInternalError(w, "Rate limiter unavailable")
				return
			}

			logger.Warn("client rate limited",
				slog.String("client_ip", key),
				slog.String("path", r.URL.Path),
				slog.Duration("retry_after", rlErr.RetryAfter))
			if audit != nil {
				var subjectID *string
				if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
					subjectID = &claims.Subject
				}
				audit.Record(r.Context(), models.AuditEventRateLimited, subjectID, map[string]string{
					"client_ip": key,
					"path":      r.URL.Path,
				})
			}
			pkghttp.WriteTooManyRequests(w, "Too many requests, please slow down", rlErr.RetryAfter)
		})
	}
}

// BurstConfig holds the short-interval guard for credential endpoints
type BurstConfig struct {
	RequestsPerMinute int
}

// DefaultAuthBurst returns the default burst config for auth endpoints (10 requests per minute)
func DefaultAuthBurst() BurstConfig {
	return BurstConfig{RequestsPerMinute: 10}
}

// BurstLimitByIP caps rapid-fire requests per client IP over one minute.
// It sits in front of login and register, alongside the hourly gate.
// Forwarded headers are only honoured from trusted proxies.
func BurstLimitByIP(config BurstConfig, ipConfig *pkghttp.IPConfig) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		config = DefaultAuthBurst()
	}
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, ipConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many attempts, please wait a minute", time.Minute)
		}),
	)
}
