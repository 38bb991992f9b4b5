// Package main is the entry point for the outcomely timelock API server.
// It wires the escrow engine to its collaborators (store, ledger, clock,
// authorization guard, websocket hub) and starts the public HTTP server
// alongside the background scheduler.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // postgres driver
	"github.com/outcomely/timelock/internal/api"
	"github.com/outcomely/timelock/internal/auth"
	"github.com/outcomely/timelock/internal/config"
	"github.com/outcomely/timelock/internal/domain"
	"github.com/outcomely/timelock/internal/engine"
	"github.com/outcomely/timelock/internal/platform/authz"
	"github.com/outcomely/timelock/internal/platform/clock"
	"github.com/outcomely/timelock/internal/platform/ledger"
	"github.com/outcomely/timelock/internal/scheduler"
	"github.com/outcomely/timelock/internal/store"
	"github.com/outcomely/timelock/internal/ws"
	"github.com/shopspring/decimal"
)

func main() {
	// ── 1. Config + logger ────────────────────────────────────────────────────
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting timelock server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Persistence backend ────────────────────────────────────────────────
	var (
		st  store.Store
		lgr ledger.Ledger
		db  *sqlx.DB
	)
	if cfg.Store.Backend == "postgres" {
		var err error
		db, err = sqlx.Connect("postgres", cfg.DB.DSN)
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

		if err = runMigrations(db, "migrations"); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")

		st = store.NewPostgres(db)
		lgr = ledger.NewPostgres(db)
	} else {
		st = store.NewMemory()
		lgr = ledger.NewMemory()
		logger.Warn("using in-memory store and ledger; state will not survive restarts")
	}

	// ── 3. WebSocket hub ──────────────────────────────────────────────────────
	var allowedOrigins []string
	if ori := os.Getenv("WS_ALLOWED_ORIGINS"); ori != "" {
		for _, o := range strings.Split(ori, ",") {
			allowedOrigins = append(allowedOrigins, strings.TrimSpace(o))
		}
	}
	hub := ws.NewHub([]byte(cfg.JWT.Secret), allowedOrigins)

	// ── 4. Engine ─────────────────────────────────────────────────────────────
	clk := clock.System{}
	eng := engine.New(st, lgr, clk, authz.ContextGuard{}, hub, engineParams(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrapAdmin(ctx, eng, domain.Address(cfg.Engine.AdminAddress), logger); err != nil {
		logger.Error("admin bootstrap failed", "err", err)
		os.Exit(1)
	}

	// ── 5. Start hub + scheduler ──────────────────────────────────────────────
	go hub.Run()
	logger.Info("websocket hub started")

	sched := scheduler.New(eng, clk, hub, logger)
	sched.Start(ctx)

	// ── 6. HTTP router ────────────────────────────────────────────────────────
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)
	router := api.SetupRouter(api.RouterDeps{
		Engine: eng,
		Tokens: tokens,
		Hub:    hub,
		Cfg:    cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 7. Graceful shutdown ──────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	if db != nil {
		db.Close()
	}
	logger.Info("server stopped cleanly")
}

// engineParams maps the config values onto engine parameters.
func engineParams(cfg *config.Config) engine.Params {
	return engine.Params{
		CreationFee:          decimal.NewFromInt(cfg.Engine.CreationFee),
		MinStake:             decimal.NewFromInt(cfg.Engine.MinStake),
		PlatformFeePercent:   cfg.Engine.PlatformFeePercent,
		TreasurySplitPercent: cfg.Engine.TreasurySplitPercent,
		MinLockWindow:        cfg.Engine.MinLockWindow,
		CancelWindow:         cfg.Engine.CancelWindow,
	}
}

// bootstrapAdmin initializes the engine with the configured administrator on
// first boot. A second boot finds the engine already initialized, which is
// fine; a configured admin that differs from the stored one is fatal.
func bootstrapAdmin(ctx context.Context, eng *engine.Engine, admin domain.Address, logger *slog.Logger) error {
	err := eng.Initialize(ctx, admin)
	switch {
	case err == nil:
		logger.Info("engine initialized", "admin", admin)
		return nil
	case errors.Is(err, domain.ErrAlreadyInitialized):
		stored, aerr := eng.Admin(ctx)
		if aerr != nil {
			return aerr
		}
		if stored != admin {
			return fmt.Errorf("configured admin %q does not match stored admin %q", admin, stored)
		}
		logger.Info("engine already initialized", "admin", stored)
		return nil
	default:
		return err
	}
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially. Idempotent: SQL files use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
