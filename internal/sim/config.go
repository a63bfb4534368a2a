package sim

import (
	"errors"

	"github.com/efreitasn/marketsim/internal/ledger"
)

// Config controls one simulation run. Money is in cents.
type Config struct {
	Symbol string
	// MaxTicks stops the run after this many ticks; 0 runs until the
	// source ends.
	MaxTicks int
	// EnableOrderBook routes orders through the book. When false every
	// admitted request executes at the tick price against the market.
	EnableOrderBook       bool
	InitialCash           int64
	InitialStock          int64
	LiquidityInitialStock int64
	Limits                ledger.Limits
	// OrderTTLTicks is the lifetime of resting orders; 0 means they never
	// expire.
	OrderTTLTicks   int
	DecisionWorkers int
	DepthLevels     int
	VWAPWindow      int // ticks
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Symbol:                "SIM",
		MaxTicks:              60,
		EnableOrderBook:       true,
		InitialCash:           1_000_000,
		LiquidityInitialStock: 100,
		DecisionWorkers:       4,
		DepthLevels:           5,
		VWAPWindow:            5,
	}
}

func (c Config) validate() error {
	switch {
	case c.Symbol == "":
		return errors.New("symbol is required")
	case c.MaxTicks < 0:
		return errors.New("max ticks must be >= 0")
	case c.InitialCash < 0 || c.InitialStock < 0 || c.LiquidityInitialStock < 0:
		return errors.New("initial balances must be >= 0")
	case c.Limits.CashBorrowLimit < 0 || c.Limits.MaxShortShares < 0:
		return errors.New("borrow and short limits must be >= 0")
	case c.OrderTTLTicks < 0:
		return errors.New("order ttl must be >= 0")
	case c.DecisionWorkers < 1:
		return errors.New("decision workers must be >= 1")
	case c.DepthLevels < 1:
		return errors.New("depth levels must be >= 1")
	case c.VWAPWindow < 1:
		return errors.New("vwap window must be >= 1")
	}
	return nil
}
