package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/rebelbudget/internal/models"
	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
)

// AuditRecorder receives security events raised by the middleware
type AuditRecorder interface {
	Record(ctx context.Context, eventType string, subjectID *string, details map[string]string)
}

// AuthMiddleware validates bearer tokens and injects the claims into the
// request context. Requests without a valid token are rejected with 401.
func AuthMiddleware(tm *TokenManager, audit AuditRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := pkghttp.BearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			claims, err := tm.Validate(tokenString)
			if err != nil {
				recordTokenFailure(r, audit, err)
				writeTokenError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuthMiddleware resolves the caller when a valid bearer token is
// present and otherwise lets the request through anonymously.
func OptionalAuthMiddleware(tm *TokenManager, audit AuditRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := pkghttp.BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tm.Validate(tokenString)
			if err != nil {
				recordTokenFailure(r, audit, err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdminRole rejects callers whose token does not carry the admin
// role. It must run after AuthMiddleware. The role is read from the token
// only; a role change applies once the user holds a newly issued token.
func RequireAdminRole(audit AuditRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			if err := RequireAdmin(claims); err != nil {
				if audit != nil {
					subject := claims.Subject
					audit.Record(r.Context(), models.AuditEventForbidden, &subject, map[string]string{
						"path": r.URL.Path,
						"role": claims.Role,
					})
				}
				pkghttp.WriteForbidden(w, "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns models.ErrForbidden unless claims carry the admin role
func RequireAdmin(claims *models.TokenClaims) error {
	if claims == nil {
		return models.ErrUnauthenticated
	}
	if !claims.IsAdmin() {
		return models.ErrForbidden
	}
	return nil
}

// WithClaims returns a copy of ctx carrying claims
func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// ClaimsFromContext extracts user claims from a context
func ClaimsFromContext(ctx context.Context) *models.TokenClaims {
	claims, ok := ctx.Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	return ClaimsFromContext(r.Context())
}

func recordTokenFailure(r *http.Request, audit AuditRecorder, err error) {
	if audit == nil {
		return
	}
	reason := "invalid_token"
	if errors.Is(err, models.ErrTokenExpired) {
		reason = "token_expired"
	}
	audit.Record(r.Context(), models.AuditEventAuthError, nil, map[string]string{
		"reason": reason,
		"path":   r.URL.Path,
	})
}

func writeTokenError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrTokenExpired) {
		pkghttp.WriteError(w, http.StatusUnauthorized, "token_expired", "Token has expired, please log in again")
		return
	}
	pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid token")
}
