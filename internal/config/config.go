package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, loaded once at start-up and passed down explicitly.
type Config struct {
	Env            string
	ServerPort     string
	AllowedOrigins string
	LogLevel       string
	// PhoneRegion is the default region used to normalize party contact numbers.
	PhoneRegion string
	Database    Database
	Reconcile   Reconcile
}

// Database holds the connection string and pool sizing for pgxpool.
type Database struct {
	URL               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// Reconcile controls how failed pendency recalculations are retried in the background.
type Reconcile struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Load reads .env (if present) and then the environment.
// Precedence: explicit env var > .env file > default.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:            getEnv("APP_ENV", "development"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		PhoneRegion:    getEnv("PHONE_REGION", "IN"),
	}

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	var err error
	if cfg.Database.MaxConns, err = getInt32("DB_MAX_CONNS", 10); err != nil {
		return Config{}, err
	}
	if cfg.Database.MaxConns < 1 {
		return Config{}, fmt.Errorf("invalid DB_MAX_CONNS %d: must be at least 1", cfg.Database.MaxConns)
	}
	if cfg.Database.MinConns, err = getInt32("DB_MIN_CONNS", 0); err != nil {
		return Config{}, err
	}
	if cfg.Database.MinConns > cfg.Database.MaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.Database.MinConns, cfg.Database.MaxConns)
	}
	if cfg.Database.MaxConnLifetime, err = getDuration("DB_MAX_CONN_LIFETIME", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Database.MaxConnIdleTime, err = getDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Database.HealthCheckPeriod, err = getDuration("DB_HEALTH_CHECK_PERIOD", time.Minute); err != nil {
		return Config{}, err
	}

	attempts, err := getInt32("RECONCILE_MAX_ATTEMPTS", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.Reconcile.MaxAttempts = int(attempts)
	if cfg.Reconcile.BaseBackoff, err = getDuration("RECONCILE_BASE_BACKOFF", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Reconcile.MaxBackoff, err = getDuration("RECONCILE_MAX_BACKOFF", 5*time.Minute); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt32(key string, def int32) (int32, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", key, v)
	}
	return int32(n), nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration like 30s", key, v)
	}
	return d, nil
}
