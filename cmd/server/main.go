package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/artarona/Administrador/internal/config"
	"github.com/artarona/Administrador/internal/handler"
	"github.com/artarona/Administrador/internal/logging"
	"github.com/artarona/Administrador/internal/repository"
	"github.com/artarona/Administrador/internal/service"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	addr := pflag.String("addr", "", "listen address (overrides PORT)")
	pflag.Parse()

	logging.Setup()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logging.Fatal("load config failed", "error", err)
	}
	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = net.JoinHostPort("", cfg.App.Port)
	}

	slog.Info("starting",
		"app", cfg.App.Name,
		"version", cfg.App.Version,
		"dsn", logging.RedactDSN(cfg.Database.URL),
		"dsn_source", cfg.Database.Source,
		"admin_token_source", cfg.Admin.Source,
	)
	if !cfg.AdminEnabled() {
		slog.Warn("ADMIN_TOKEN not configured; admin endpoints are disabled")
	}

	db, pool, err := repository.Open(context.Background(), cfg.Database)
	if err != nil {
		logging.Fatal("failed to create database pool", "error", err)
	}
	if pool != nil {
		defer pool.Close()
	}

	// The service starts even when the database is down or not configured;
	// /health reports it and the schema is checked lazily on first use.
	pingCtx, cancelPing := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	if err := db.Ping(pingCtx); err != nil {
		slog.Warn("database not reachable at startup", "error", err)
	}
	cancelPing()

	contactRepo := repository.NewPgContactRepository(db)
	contactService := service.NewContactService(contactRepo)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := handler.NewMetrics(reg)
	if pool != nil {
		metrics.RegisterPool(reg, pool)
	}

	rateLimiter := handler.NewRateLimiter(cfg.App.RateLimitPerMinute)
	defer rateLimiter.Stop()

	h := handler.New(db, contactService, cfg.App.Version, cfg.CORS.AllowedOrigins)
	router := handler.NewRouter(handler.RouterConfig{
		Handler:     h,
		Contacts:    handler.NewContactHandler(contactService, metrics),
		AdminToken:  cfg.Admin.Token,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		StaticDir:   cfg.App.StaticDir,
	})

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
