package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnvKeys = []string{
	"ENV_FILE", "PORT", "LOG_LEVEL", "SYMBOL", "MAX_TICKS", "ENABLE_ORDER_BOOK",
	"INITIAL_CASH", "INITIAL_STOCK", "LIQUIDITY_INITIAL_STOCK",
	"ALLOW_NEGATIVE_CASH", "CASH_BORROW_LIMIT", "ALLOW_SHORT", "MAX_SHORT_SHARES",
	"ORDER_TTL_TICKS", "DECISION_WORKERS", "DEPTH_LEVELS", "VWAP_WINDOW",
	"READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	// Keep a stray .env in the package directory out of the picture.
	os.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Symbol != "SIM" {
		t.Errorf("Symbol = %q, want SIM", cfg.Symbol)
	}
	if cfg.MaxTicks != 60 {
		t.Errorf("MaxTicks = %d, want 60", cfg.MaxTicks)
	}
	if !cfg.EnableOrderBook {
		t.Error("EnableOrderBook = false, want true")
	}
	if cfg.InitialCash != 1_000_000 {
		t.Errorf("InitialCash = %d, want 1000000", cfg.InitialCash)
	}
	if cfg.LiquidityInitialStock != 100 {
		t.Errorf("LiquidityInitialStock = %d, want 100", cfg.LiquidityInitialStock)
	}
	if cfg.AllowNegativeCash || cfg.AllowShort {
		t.Error("margin and shorting should be off by default")
	}
	if cfg.OrderTTLTicks != 0 {
		t.Errorf("OrderTTLTicks = %d, want 0", cfg.OrderTTLTicks)
	}
	if cfg.DecisionWorkers != 4 {
		t.Errorf("DecisionWorkers = %d, want 4", cfg.DecisionWorkers)
	}
	if cfg.DepthLevels != 5 || cfg.VWAPWindow != 5 {
		t.Errorf("DepthLevels/VWAPWindow = %d/%d, want 5/5", cfg.DepthLevels, cfg.VWAPWindow)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SYMBOL", "ACME")
	t.Setenv("MAX_TICKS", "0")
	t.Setenv("ENABLE_ORDER_BOOK", "false")
	t.Setenv("INITIAL_CASH", "2500.50")
	t.Setenv("INITIAL_STOCK", "7")
	t.Setenv("ALLOW_NEGATIVE_CASH", "true")
	t.Setenv("CASH_BORROW_LIMIT", "100")
	t.Setenv("ALLOW_SHORT", "1")
	t.Setenv("MAX_SHORT_SHARES", "20")
	t.Setenv("ORDER_TTL_TICKS", "3")
	t.Setenv("DECISION_WORKERS", "8")
	t.Setenv("SHUTDOWN_TIMEOUT", "15s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 || cfg.LogLevel != "debug" || cfg.Symbol != "ACME" {
		t.Errorf("unexpected basics %d %q %q", cfg.Port, cfg.LogLevel, cfg.Symbol)
	}
	if cfg.MaxTicks != 0 || cfg.EnableOrderBook {
		t.Errorf("MaxTicks/EnableOrderBook = %d/%v", cfg.MaxTicks, cfg.EnableOrderBook)
	}
	if cfg.InitialCash != 250050 {
		t.Errorf("InitialCash = %d, want 250050", cfg.InitialCash)
	}
	if cfg.CashBorrowLimit != 10000 {
		t.Errorf("CashBorrowLimit = %d, want 10000", cfg.CashBorrowLimit)
	}
	if !cfg.AllowNegativeCash || !cfg.AllowShort || cfg.MaxShortShares != 20 {
		t.Errorf("unexpected limits %+v", cfg)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 15s", cfg.ShutdownTimeout)
	}

	sc := cfg.Simulation()
	if sc.Symbol != "ACME" || sc.OrderTTLTicks != 3 || sc.DecisionWorkers != 8 || sc.InitialStock != 7 {
		t.Errorf("unexpected projection %+v", sc)
	}
	if sc.Limits.BorrowLimit() != 10000 || sc.Limits.ShortLimit() != 20 {
		t.Errorf("unexpected projected limits %+v", sc.Limits)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sim.env")
	data := "SYMBOL=FROMFILE\nMAX_TICKS=12\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("MAX_TICKS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Symbol != "FROMFILE" {
		t.Errorf("Symbol = %q, want FROMFILE", cfg.Symbol)
	}
	if cfg.MaxTicks != 30 {
		t.Errorf("environment should win over the file, MaxTicks = %d", cfg.MaxTicks)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "abc"},
		{"LOG_LEVEL", "verbose"},
		{"MAX_TICKS", "-1"},
		{"MAX_TICKS", "many"},
		{"DECISION_WORKERS", "0"},
		{"DEPTH_LEVELS", "0"},
		{"INITIAL_CASH", "10.001"},
		{"INITIAL_CASH", "-5"},
		{"INITIAL_STOCK", "-1"},
		{"ENABLE_ORDER_BOOK", "maybe"},
		{"ORDER_TTL_TICKS", "-2"},
		{"READ_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
