package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/config"
	"github.com/BradenHooton/rebelbudget/internal/database"
	pkglogger "github.com/BradenHooton/rebelbudget/pkg/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [up|down|status|version|redo|reset]\n")
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	logger := pkglogger.New(os.Stdout, os.Getenv("LOG_LEVEL"))

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.OpenSQL(dbCfg.DSN())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := database.MigrateCommand(ctx, db, logger, command); err != nil {
		logger.Error("migration failed", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}
}
