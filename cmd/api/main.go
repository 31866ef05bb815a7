package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/auth"
	"github.com/BradenHooton/rebelbudget/internal/background"
	"github.com/BradenHooton/rebelbudget/internal/config"
	"github.com/BradenHooton/rebelbudget/internal/database"
	"github.com/BradenHooton/rebelbudget/internal/handlers"
	middlewareCustom "github.com/BradenHooton/rebelbudget/internal/middleware"
	"github.com/BradenHooton/rebelbudget/internal/ratelimit"
	"github.com/BradenHooton/rebelbudget/internal/repositories"
	"github.com/BradenHooton/rebelbudget/internal/routes"
	"github.com/BradenHooton/rebelbudget/internal/services"
	pkgauth "github.com/BradenHooton/rebelbudget/pkg/auth"
	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
	pkglogger "github.com/BradenHooton/rebelbudget/pkg/logger"
)

func main() {
	logger := pkglogger.New(os.Stdout, "info")
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	if cfg.Database.AutoMigrate {
		if err := database.MigrateDSN(startupCtx, &cfg.Database, logger); err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	// Audit: structured log line plus optional database row
	var auditStore services.AuditLogRepository
	if cfg.Auth.AuditPersist {
		auditStore = auditRepo
	}
	auditService := services.NewAuditService(pkglogger.NewAuditLogger(logger), auditStore, logger)

	// Credentials and tokens
	hasher := pkgauth.NewHasher(cfg.Auth.BcryptCost)
	tokenManager, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	if err != nil {
		logger.Error("failed to create token manager", slog.Any("error", err))
		os.Exit(1)
	}

	guard := services.NewLockoutGuard(services.LockoutPolicy{
		Threshold: cfg.Auth.LockoutThreshold,
		Duration:  cfg.Auth.LockoutDuration,
	}, userRepo)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Auth.TimingDelayBase,
		RandomDelay: cfg.Auth.TimingDelayRandom,
	})

	authOpts := []services.AuthOption{services.WithTimingDelay(timingDelay)}
	if cfg.Email.FromAddress != "" {
		notifier, err := services.NewSESNotifier(startupCtx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email notifier", slog.Any("error", err))
			os.Exit(1)
		}
		authOpts = append(authOpts, services.WithLockoutNotifier(notifier))
	} else {
		logger.Info("EMAIL_FROM_ADDRESS not set, lockout notifications disabled")
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, hasher, tokenManager, guard, auditService, logger, authOpts...)
	adminService := services.NewAdminService(userRepo, hasher, auditService, logger)

	// Bootstrap first admin user if configured
	if cfg.Admin.Enabled() {
		created, err := adminService.EnsureAdmin(startupCtx, services.RegisterInput{
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
			FullName: cfg.Admin.Name,
		})
		if err != nil {
			logger.Error("failed to ensure admin user", slog.Any("error", err))
		} else if created {
			logger.Info("admin user created", slog.String("email", pkglogger.SanitizedEmail(cfg.Admin.Email)))
		}
	} else {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
	}

	// Request limiter
	limiter, err := ratelimit.NewSlidingWindow(ratelimit.Config{
		Limit:  cfg.Auth.RateLimitRequests,
		Window: cfg.Auth.RateLimitWindow,
	})
	if err != nil {
		logger.Error("failed to create rate limiter", slog.Any("error", err))
		os.Exit(1)
	}

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	router := routes.NewRouter(routes.Dependencies{
		AuthHandler:  handlers.NewAuthHandler(authService, ipConfig, logger),
		AdminHandler: handlers.NewAdminHandler(adminService, logger),
		AuditHandler: handlers.NewAuditHandler(auditRepo, logger),
		Health:       handlers.Health(db),
		TokenManager: tokenManager,
		Limiter:      limiter,
		Audit:        auditService,
		IPConfig:     ipConfig,
		CORS:         middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins),
		Burst:        middlewareCustom.BurstConfig{RequestsPerMinute: cfg.Auth.BurstPerMinute},
		Env:          cfg.Server.Env,
		Logger:       logger,
	})

	// Initialize cleanup manager
	var pruner background.AuditPruner
	if cfg.Auth.AuditPersist {
		pruner = auditRepo
	}
	cleanupManager := background.NewCleanupManager(limiter, pruner, cfg.Auth.AuditRetention, logger, cfg.Auth.CleanupInterval)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
