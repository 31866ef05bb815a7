package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/auth"
	"github.com/BradenHooton/rebelbudget/internal/handlers"
	"github.com/BradenHooton/rebelbudget/internal/middleware"
	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Dependencies holds everything the router needs
type Dependencies struct {
	AuthHandler  *handlers.AuthHandler
	AdminHandler *handlers.AdminHandler
	AuditHandler *handlers.AuditHandler
	Health       http.HandlerFunc
	TokenManager *auth.TokenManager
	Limiter      middleware.Limiter
	Audit        middleware.AuditRecorder
	IPConfig     *pkghttp.IPConfig
	CORS         *middleware.CORSConfig
	Burst        middleware.BurstConfig
	Env          string
	Logger       *slog.Logger
}

// NewRouter builds the application router with the global middleware stack
func NewRouter(d Dependencies) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: d.Env}))
	router.Use(middleware.CORS(d.CORS))
	router.Use(middleware.SecureLogger(d.Logger, d.IPConfig))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	router.Get("/health", d.Health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.OptionalAuthMiddleware(d.TokenManager, nil))
		r.Use(middleware.RateLimitGate(d.Limiter, d.IPConfig, d.Audit, d.Logger))
		RegisterRoutes(r, d)
	})

	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, d Dependencies) {
	burst := middleware.BurstLimitByIP(d.Burst, d.IPConfig)

	// Public routes - no authentication required
	router.With(burst).Post("/auth/register", d.AuthHandler.Register)
	router.With(burst).Post("/auth/login", d.AuthHandler.Login)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(d.TokenManager, d.Audit))

		r.Get("/auth/me", d.AuthHandler.Me)
		r.Post("/auth/logout", d.AuthHandler.Logout)

		// Admin-only routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdminRole(d.Audit))

			r.Get("/stats", d.AdminHandler.GetDashboardStats)
			r.Get("/users", d.AdminHandler.ListUsers)
			r.Post("/users", d.AdminHandler.CreateAdmin)
			r.Patch("/users/{id}/admin", d.AdminHandler.ToggleAdmin)
			r.Patch("/users/{id}/active", d.AdminHandler.ToggleActive)
			r.Post("/users/{id}/unlock", d.AdminHandler.Unlock)

			if d.AuditHandler != nil {
				r.Get("/users/{id}/audit", d.AuditHandler.GetUserAuditTrail)
				r.Get("/security/summary", d.AuditHandler.GetSecuritySummary)
			}
		})
	})
}
