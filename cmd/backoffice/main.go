// Package main is the entry point for the outcomely timelock back-office
// server. It exposes the admin-only endpoints (resolve, cancel, treasury
// withdrawal, reports) protected by an IP whitelist and admin tokens.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/outcomely/timelock/internal/auth"
	"github.com/outcomely/timelock/internal/backoffice"
	"github.com/outcomely/timelock/internal/config"
	"github.com/outcomely/timelock/internal/engine"
	"github.com/outcomely/timelock/internal/platform/authz"
	"github.com/outcomely/timelock/internal/platform/clock"
	"github.com/outcomely/timelock/internal/platform/ledger"
	"github.com/outcomely/timelock/internal/store"
	"github.com/shopspring/decimal"
)

func main() {
	// ── Config + logger ───────────────────────────────────────────────────────
	_ = godotenv.Load()
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting timelock backoffice server",
		"env", cfg.Server.Env, "port", cfg.Server.BackofficePort)

	// ── Persistence ───────────────────────────────────────────────────────────
	// The backoffice shares the database with the API server; it does not run
	// migrations and cannot operate on the in-memory backend.
	if cfg.Store.Backend != "postgres" {
		logger.Error("backoffice requires STORE_BACKEND=postgres")
		os.Exit(1)
	}
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── Engine (no emitter: the API server owns the websocket hub) ────────────
	eng := engine.New(
		store.NewPostgres(db),
		ledger.NewPostgres(db),
		clock.System{},
		authz.ContextGuard{},
		nil,
		engine.Params{
			CreationFee:          decimal.NewFromInt(cfg.Engine.CreationFee),
			MinStake:             decimal.NewFromInt(cfg.Engine.MinStake),
			PlatformFeePercent:   cfg.Engine.PlatformFeePercent,
			TreasurySplitPercent: cfg.Engine.TreasurySplitPercent,
			MinLockWindow:        cfg.Engine.MinLockWindow,
			CancelWindow:         cfg.Engine.CancelWindow,
		},
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Router ────────────────────────────────────────────────────────────────
	router := backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
		Engine: eng,
		Tokens: auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL),
		Cfg:    cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.BackofficePort,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── Start ─────────────────────────────────────────────────────────────────
	go func() {
		logger.Info("backoffice http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("backoffice server error", "err", err)
			stop()
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("backoffice shutdown error", "err", err)
	}

	db.Close()
	logger.Info("backoffice server stopped cleanly")
}
