package config

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/inventory")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.ServerPort)
	}
	if cfg.Database.MaxConns != 10 {
		t.Errorf("Expected default MaxConns 10, got %d", cfg.Database.MaxConns)
	}
	if cfg.Reconcile.BaseBackoff != 2*time.Second {
		t.Errorf("Expected default base backoff 2s, got %s", cfg.Reconcile.BaseBackoff)
	}
	if cfg.PhoneRegion != "IN" {
		t.Errorf("Expected default phone region IN, got %s", cfg.PhoneRegion)
	}
}

func TestFromEnv_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("Expected error when DATABASE_URL is unset")
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"DB_MAX_CONNS":           "lots",
		"DB_MAX_CONN_LIFETIME":   "forever",
		"RECONCILE_BASE_BACKOFF": "-1s",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/inventory")
			t.Setenv(key, val)
			if _, err := FromEnv(); err == nil {
				t.Errorf("Expected error for %s=%q", key, val)
			}
		})
	}
}

func TestFromEnv_ZeroMaxConns(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/inventory")
	t.Setenv("DB_MAX_CONNS", "0")
	_, err := FromEnv()
	if err == nil || !strings.Contains(err.Error(), "must be at least 1") {
		t.Fatalf("Expected at-least-1 error for DB_MAX_CONNS=0, got %v", err)
	}
}

func TestFromEnv_MinAboveMax(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/inventory")
	t.Setenv("DB_MAX_CONNS", "2")
	t.Setenv("DB_MIN_CONNS", "5")
	if _, err := FromEnv(); err == nil {
		t.Fatal("Expected error when min conns exceed max conns")
	}
}

func TestNewLogger_Level(t *testing.T) {
	if got := NewLogger("debug").GetLevel(); got != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %s", got)
	}
	if got := NewLogger("nonsense").GetLevel(); got != logrus.InfoLevel {
		t.Errorf("Expected fallback to info, got %s", got)
	}
}
