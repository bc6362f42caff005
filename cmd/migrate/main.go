package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/artarona/Administrador/internal/config"
	"github.com/artarona/Administrador/internal/logging"
	"github.com/artarona/Administrador/internal/repository"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [flags] [command]

Commands:
  (default)   create the contactos table or add its missing columns and indexes
  check       report what would change, without changing anything

Flags:`)
	pflag.PrintDefaults()
}

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	timeout := pflag.Duration("timeout", 30*time.Second, "overall deadline for the migration")
	pflag.Usage = usage
	pflag.Parse()

	logging.Setup()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logging.Fatal("load config failed", "error", err)
	}
	slog.Info("connecting", "dsn", logging.RedactDSN(cfg.Database.URL), "dsn_source", cfg.Database.Source)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := repository.NewPool(ctx, cfg.Database)
	if err != nil {
		logging.Fatal("connect failed", "error", err)
	}
	defer pool.Close()

	schema := repository.NewSchemaManager(pool)

	switch pflag.Arg(0) {
	case "":
		runEnsure(ctx, schema)
	case "check":
		runCheck(ctx, schema)
	default:
		usage()
		os.Exit(1)
	}
}

func runEnsure(ctx context.Context, schema *repository.SchemaManager) {
	if err := schema.EnsureSchema(ctx); err != nil {
		logging.Fatal("ensure schema failed", "error", err)
	}
	if !schema.EmailUnique() {
		slog.Warn("schema up to date except the unique email index; resolve the duplicates logged above and rerun")
		return
	}
	slog.Info("schema up to date")
}

func runCheck(ctx context.Context, schema *repository.SchemaManager) {
	tableMissing, columns, err := schema.Missing(ctx)
	if err != nil {
		logging.Fatal("schema check failed", "error", err)
	}
	switch {
	case tableMissing:
		slog.Info("contactos table is missing; migrate would create it")
	case len(columns) > 0:
		slog.Info("contactos is missing columns", "columns", columns)
	default:
		slog.Info("all columns present")
	}
}
