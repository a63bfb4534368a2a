// Package agent defines the decision interface the simulation drives each
// tick, plus the built-in strategies.
package agent

import (
	"hash/fnv"
	"math/rand/v2"
	"strings"

	"github.com/efreitasn/marketsim/internal/domain"
)

// LiquidityPrefix marks agents that supply liquidity by name.
const LiquidityPrefix = "Liquidity_"

// Observation is everything an agent sees when asked to decide: the
// instrument, the tick, the current price and its own balances. Agents
// never see each other's orders.
type Observation struct {
	Symbol string
	Tick   int
	Price  int64 // cents
	Cash   int64 // cents
	Shares int64
}

// Strategy turns one observation into zero or more order requests. An
// error means "no orders this tick" for that agent only.
type Strategy interface {
	Decide(obs Observation) ([]domain.OrderRequest, error)
}

// Func adapts an ordinary function to Strategy.
type Func func(obs Observation) ([]domain.OrderRequest, error)

// Decide calls f(obs).
func (f Func) Decide(obs Observation) ([]domain.OrderRequest, error) {
	return f(obs)
}

// LiquidityProvider is implemented by strategies whose agents are tracked
// like everyone else but kept off the competitive leaderboard.
type LiquidityProvider interface {
	ProvidesLiquidity() bool
}

// IsLiquidityProvider reports whether an agent with this name and strategy
// should be treated as a liquidity provider.
func IsLiquidityProvider(name string, s Strategy) bool {
	if strings.HasPrefix(name, LiquidityPrefix) {
		return true
	}
	lp, ok := s.(LiquidityProvider)
	return ok && lp.ProvidesLiquidity()
}

// seedFor derives a stable per-agent seed from its name.
func seedFor(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
