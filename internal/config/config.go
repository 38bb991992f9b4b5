// Package config provides application configuration loaded from environment
// variables. Use the package-level Get() function to obtain the singleton
// Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	BackofficeAllowedIPs string        // comma-separated IPs; "" = allow all
}

// DBConfig holds PostgreSQL connection settings. Only consulted when
// STORE_BACKEND=postgres.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds bearer-token signing settings.
type JWTConfig struct {
	Secret string        // must be set
	TTL    time.Duration // default 24h
}

// EngineConfig holds the escrow engine's economic parameters. Amounts are
// integer base units of the settlement asset (7 decimals: 10_000_000 = 1 unit).
type EngineConfig struct {
	AdminAddress         string        // account that resolves/cancels/withdraws
	CreationFee          int64         // default 500_000_000 (50 units)
	MinStake             int64         // default 1_000_000_000 (100 units)
	PlatformFeePercent   int64         // default 5
	TreasurySplitPercent int64         // default 70 (remainder burned)
	MinLockWindow        time.Duration // default 1h
	CancelWindow         time.Duration // default 1h
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string // "memory" | "postgres"
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	JWT    JWTConfig
	Engine EngineConfig
	Store  StoreConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and
// valid. Returns every validation error encountered, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.Engine.AdminAddress == "" {
		errs = append(errs, errors.New("ADMIN_ADDRESS must be set"))
	}
	if c.IsProd() && c.Store.Backend == "postgres" && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}
	if c.Store.Backend != "memory" && c.Store.Backend != "postgres" {
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be memory or postgres, got %q", c.Store.Backend))
	}

	if c.Engine.PlatformFeePercent < 0 || c.Engine.PlatformFeePercent > 100 {
		errs = append(errs, fmt.Errorf(
			"PLATFORM_FEE_PERCENT must be 0-100, got %d", c.Engine.PlatformFeePercent))
	}
	if c.Engine.TreasurySplitPercent < 0 || c.Engine.TreasurySplitPercent > 100 {
		errs = append(errs, fmt.Errorf(
			"TREASURY_SPLIT_PERCENT must be 0-100, got %d", c.Engine.TreasurySplitPercent))
	}
	if c.Engine.MinStake <= 0 {
		errs = append(errs, fmt.Errorf("MIN_STAKE must be positive, got %d", c.Engine.MinStake))
	}
	if c.Engine.CreationFee < 0 {
		errs = append(errs, fmt.Errorf("CREATION_FEE must be non-negative, got %d", c.Engine.CreationFee))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment
// variables. Panics if loading fails — call this early in main() to catch
// misconfigurations at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
	}

	// ── Store / Database ──────────────────────────────────────────────────────
	cfg.Store = StoreConfig{
		Backend: getEnv("STORE_BACKEND", "postgres"),
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "timelock"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET", ""),
		TTL:    getDuration("JWT_TTL", 24*time.Hour),
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	creationFee, err := getInt64("CREATION_FEE", 500_000_000)
	if err != nil {
		return nil, fmt.Errorf("CREATION_FEE: %w", err)
	}
	minStake, err := getInt64("MIN_STAKE", 1_000_000_000)
	if err != nil {
		return nil, fmt.Errorf("MIN_STAKE: %w", err)
	}
	feePct, err := getInt64("PLATFORM_FEE_PERCENT", 5)
	if err != nil {
		return nil, fmt.Errorf("PLATFORM_FEE_PERCENT: %w", err)
	}
	splitPct, err := getInt64("TREASURY_SPLIT_PERCENT", 70)
	if err != nil {
		return nil, fmt.Errorf("TREASURY_SPLIT_PERCENT: %w", err)
	}

	cfg.Engine = EngineConfig{
		AdminAddress:         getEnv("ADMIN_ADDRESS", ""),
		CreationFee:          creationFee,
		MinStake:             minStake,
		PlatformFeePercent:   feePct,
		TreasurySplitPercent: splitPct,
		MinLockWindow:        getDuration("MIN_LOCK_WINDOW", time.Hour),
		CancelWindow:         getDuration("CANCEL_WINDOW", time.Hour),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
