package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/rebelbudget/internal/config"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func init() {
	goose.SetBaseFS(migrationsFS)
}

// OpenSQL opens a database/sql handle for goose
func OpenSQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open migration connection: %w", err)
	}
	return db, nil
}

// Migrate applies all pending migrations
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	return runGoose(ctx, db, logger, "up")
}

// MigrateCommand runs a goose command ("up", "down", "status", "version",
// "reset") against the embedded migrations.
func MigrateCommand(ctx context.Context, db *sql.DB, logger *slog.Logger, command string) error {
	return runGoose(ctx, db, logger, command)
}

// MigrateDSN opens cfg's database, applies pending migrations and closes it
func MigrateDSN(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) error {
	db, err := OpenSQL(cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return Migrate(ctx, db, logger)
}

func runGoose(ctx context.Context, db *sql.DB, logger *slog.Logger, command string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	before, _ := goose.GetDBVersionContext(ctx, db)

	if err := goose.RunContext(ctx, command, db, "migrations"); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}

	after, _ := goose.GetDBVersionContext(ctx, db)
	logger.Info("database migrations applied",
		slog.String("command", command),
		slog.Int64("from_version", before),
		slog.Int64("to_version", after),
	)
	return nil
}
