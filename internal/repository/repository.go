package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/artarona/Administrador/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxConnIdleTime = 5 * time.Minute

// NewPool creates the PostgreSQL connection pool.
// The pool connects lazily; callers Ping to find out whether the store is reachable.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return pool, nil
}

// Open returns the store the server runs against. Without a configured URL
// it logs a warning and returns Unavailable with a nil pool, so the server
// starts degraded instead of exiting.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Querier, *pgxpool.Pool, error) {
	if cfg.URL == "" {
		slog.Warn("DATABASE_URL not configured; running without a database", "dsn_source", cfg.Source)
		return Unavailable{}, nil, nil
	}
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return pool, pool, nil
}

func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is not configured", ErrStorageUnavailable)
	}
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		// pgconn redacts the password in parse errors.
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnIdleTime = maxConnIdleTime
	pc.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	return pc, nil
}
