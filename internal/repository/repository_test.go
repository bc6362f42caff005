package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artarona/Administrador/internal/config"
)

func TestPoolConfig_AppliesLimits(t *testing.T) {
	pc, err := poolConfig(config.DatabaseConfig{
		URL:              "postgres://u:p@localhost:5432/contactos?sslmode=disable",
		MaxConns:         10,
		MinConns:         1,
		ConnectTimeout:   10 * time.Second,
		StatementTimeout: 15 * time.Second,
	})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if pc.MaxConns != 10 || pc.MinConns != 1 {
		t.Errorf("pool bounds = %d..%d", pc.MinConns, pc.MaxConns)
	}
	if pc.ConnConfig.ConnectTimeout != 10*time.Second {
		t.Errorf("connect timeout = %v", pc.ConnConfig.ConnectTimeout)
	}
	if got := pc.ConnConfig.RuntimeParams["statement_timeout"]; got != "15000" {
		t.Errorf("statement_timeout = %q, want 15000", got)
	}
}

func TestPoolConfig_MissingURL(t *testing.T) {
	_, err := poolConfig(config.DatabaseConfig{})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestOpen_WithoutURLRunsDegraded(t *testing.T) {
	db, pool, err := Open(context.Background(), config.DatabaseConfig{Source: config.SourceNone})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pool != nil {
		t.Error("expected no pool without a URL")
	}
	if err := db.Ping(context.Background()); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Ping: expected ErrStorageUnavailable, got %v", err)
	}
}

func TestOpen_MalformedURL(t *testing.T) {
	if _, _, err := Open(context.Background(), config.DatabaseConfig{URL: "postgres://%zz"}); err == nil {
		t.Fatal("expected parse error")
	}
}
