package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/ledger"
	"github.com/efreitasn/marketsim/internal/sim"
)

// Config holds all runtime configuration for the market simulator.
// Money fields are in cents.
type Config struct {
	Port     int
	LogLevel string

	Symbol                string
	MaxTicks              int
	EnableOrderBook       bool
	InitialCash           int64
	InitialStock          int64
	LiquidityInitialStock int64
	AllowNegativeCash     bool
	CashBorrowLimit       int64
	AllowShort            bool
	MaxShortShares        int64
	OrderTTLTicks         int
	DecisionWorkers       int
	DepthLevels           int
	VWAPWindow            int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load overlays an optional .env file (ENV_FILE, default ".env") onto the
// environment, then reads configuration from environment variables,
// applies defaults, and validates values. Variables already set in the
// environment win over the file. It returns an error for any invalid value.
func Load() (*Config, error) {
	envFile := getStr("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	cfg := &Config{
		Port:     port,
		LogLevel: logLevel,
		Symbol:   getStr("SYMBOL", "SIM"),
	}

	ints := []struct {
		key string
		dst *int
		def int
		min int
	}{
		{"MAX_TICKS", &cfg.MaxTicks, 60, 0},
		{"ORDER_TTL_TICKS", &cfg.OrderTTLTicks, 0, 0},
		{"DECISION_WORKERS", &cfg.DecisionWorkers, 4, 1},
		{"DEPTH_LEVELS", &cfg.DepthLevels, 5, 1},
		{"VWAP_WINDOW", &cfg.VWAPWindow, 5, 1},
	}
	for _, f := range ints {
		v, err := getInt(f.key, f.def)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		if v < f.min {
			return nil, fmt.Errorf("invalid %s: must be >= %d, got %d", f.key, f.min, v)
		}
		*f.dst = v
	}

	shares := []struct {
		key string
		dst *int64
		def int64
	}{
		{"INITIAL_STOCK", &cfg.InitialStock, 0},
		{"LIQUIDITY_INITIAL_STOCK", &cfg.LiquidityInitialStock, 100},
		{"MAX_SHORT_SHARES", &cfg.MaxShortShares, 0},
	}
	for _, f := range shares {
		v, err := getInt64(f.key, f.def)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("invalid %s: must be >= 0, got %d", f.key, v)
		}
		*f.dst = v
	}

	money := []struct {
		key string
		dst *int64
		def int64
	}{
		{"INITIAL_CASH", &cfg.InitialCash, 1_000_000},
		{"CASH_BORROW_LIMIT", &cfg.CashBorrowLimit, 0},
	}
	for _, f := range money {
		v, err := getMoney(f.key, f.def)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dst = v
	}

	bools := []struct {
		key string
		dst *bool
		def bool
	}{
		{"ENABLE_ORDER_BOOK", &cfg.EnableOrderBook, true},
		{"ALLOW_NEGATIVE_CASH", &cfg.AllowNegativeCash, false},
		{"ALLOW_SHORT", &cfg.AllowShort, false},
	}
	for _, f := range bools {
		v, err := getBool(f.key, f.def)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dst = v
	}

	durations := []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"READ_TIMEOUT", &cfg.ReadTimeout, 5 * time.Second},
		{"WRITE_TIMEOUT", &cfg.WriteTimeout, 10 * time.Second},
		{"IDLE_TIMEOUT", &cfg.IdleTimeout, 60 * time.Second},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout, 10 * time.Second},
	}
	for _, f := range durations {
		v, err := getDuration(f.key, f.def)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dst = v
	}

	return cfg, nil
}

// Simulation projects the configuration onto a simulation run.
func (c *Config) Simulation() sim.Config {
	return sim.Config{
		Symbol:                c.Symbol,
		MaxTicks:              c.MaxTicks,
		EnableOrderBook:       c.EnableOrderBook,
		InitialCash:           c.InitialCash,
		InitialStock:          c.InitialStock,
		LiquidityInitialStock: c.LiquidityInitialStock,
		Limits: ledger.Limits{
			AllowNegativeCash: c.AllowNegativeCash,
			CashBorrowLimit:   c.CashBorrowLimit,
			AllowShort:        c.AllowShort,
			MaxShortShares:    c.MaxShortShares,
		},
		OrderTTLTicks:   c.OrderTTLTicks,
		DecisionWorkers: c.DecisionWorkers,
		DepthLevels:     c.DepthLevels,
		VWAPWindow:      c.VWAPWindow,
	}
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

// getMoney reads a non-negative dollar amount with at most two decimals
// and returns it in cents.
func getMoney(key string, defaultCents int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultCents, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("must be >= 0, got %s", v)
	}
	return domain.DollarsToCents(f)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
