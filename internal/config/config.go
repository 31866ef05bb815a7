package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
	Admin    AdminBootstrapConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret         string
	TokenExpiry       time.Duration
	BcryptCost        int
	LockoutThreshold  int
	LockoutDuration   time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	BurstPerMinute    int
	TimingDelayBase   time.Duration
	TimingDelayRandom time.Duration
	CleanupInterval   time.Duration
	AuditPersist      bool
	AuditRetention    time.Duration
}

// EmailConfig controls lockout notifications. An empty FromAddress disables them.
type EmailConfig struct {
	FromAddress string
	AWSRegion   string
}

// AdminBootstrapConfig seeds the first admin account on startup
type AdminBootstrapConfig struct {
	Email    string
	Password string
	Name     string
}

// Enabled reports whether both credentials are set
func (a AdminBootstrapConfig) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabase(),
		Server:   ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: pkghttp.ParseTrustedProxies(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			TokenExpiry:       getEnvAsDuration("TOKEN_EXPIRY", 24*time.Hour),
			BcryptCost:        getEnvAsInt("BCRYPT_COST", 12),
			LockoutThreshold:  getEnvAsInt("LOCKOUT_THRESHOLD", 5),
			LockoutDuration:   getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			RateLimitWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", 60*time.Minute),
			BurstPerMinute:    getEnvAsInt("AUTH_BURST_PER_MINUTE", 10),
			TimingDelayBase:   time.Duration(getEnvAsInt("TIMING_DELAY_BASE_MS", 0)) * time.Millisecond,
			TimingDelayRandom: time.Duration(getEnvAsInt("TIMING_DELAY_RANDOM_MS", 0)) * time.Millisecond,
			CleanupInterval:   getEnvAsDuration("CLEANUP_INTERVAL", 10*time.Minute),
			AuditPersist:      getEnvAsBool("AUDIT_PERSIST", true),
			AuditRetention:    getEnvAsDuration("AUDIT_RETENTION", 90*24*time.Hour),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		},
		Admin: AdminBootstrapConfig{
			Email:    strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Name:     getEnv("ADMIN_NAME", "Administrator"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, errMissingDBPassword
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var errMissingDBPassword = fmt.Errorf("DB_PASSWORD is required")

// LoadDatabase reads only the database settings. Used by tools that do not
// serve requests, such as the migrate command.
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	db := loadDatabase()
	if db.Password == "" {
		return nil, errMissingDBPassword
	}
	return &db, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "rebelbudget"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
	}
}

func (a *AuthConfig) validate() error {
	if a.TokenExpiry <= 0 {
		return fmt.Errorf("TOKEN_EXPIRY must be positive")
	}
	if a.LockoutThreshold < 1 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be at least 1")
	}
	if a.LockoutDuration <= 0 {
		return fmt.Errorf("LOCKOUT_DURATION must be positive")
	}
	if a.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if a.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if a.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	// Minimum length based on environment
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // 256 bits for HS256
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if originsStr := getEnv("ALLOWED_ORIGINS", ""); originsStr != "" {
		return splitList(originsStr)
	}

	if env == "production" {
		return []string{} // Default to no origins in production
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
