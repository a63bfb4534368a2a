package agent

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Verdict is the coarse output of an externally supplied decision function.
type Verdict int

const (
	Hold Verdict = iota
	Buy
	Sell
)

func (v Verdict) String() string {
	switch v {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Hold:
		return "HOLD"
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// ParseVerdict accepts BUY, SELL or HOLD in any case.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	case "HOLD":
		return Hold, nil
	}
	return Hold, fmt.Errorf("unknown verdict %q", s)
}

// VerdictFunc is an external decision callable: it sees only the symbol
// and the agent's own balances.
type VerdictFunc func(symbol string, cash, shares int64) (Verdict, error)

// Algo wraps a VerdictFunc with the layer that turns a verdict into
// concrete orders. Every parameter is derived from the agent's name, so
// two runs of the same agent behave identically:
//
//   - some agents act every tick, some every other tick;
//   - buys are priced 10–40 bps above the market and sells 10–40 bps below;
//   - BUY and SELL verdicts trade 5–18 shares;
//   - after a streak of HOLDs the agent seeds a small position, half offset.
type Algo struct {
	fn  VerdictFunc
	rng *rand.Rand

	tickSkip       int
	buyBps         float64
	sellBps        float64
	seedTicks      int
	seedPreferSell bool
	holdStreak     int
}

// NewAlgo creates an Algo for the named agent.
func NewAlgo(name string, fn VerdictFunc) *Algo {
	rng := newRand(seedFor(name))
	a := &Algo{fn: fn, rng: rng}
	a.tickSkip = []int{1, 1, 1, 2}[rng.IntN(4)]
	a.buyBps = 10 + rng.Float64()*30
	a.sellBps = 10 + rng.Float64()*30
	a.seedTicks = 2 + rng.IntN(4)
	a.seedPreferSell = rng.IntN(2) == 0
	return a
}

// Decide maps the verdict for obs to limit orders, skipping throttled ticks.
func (a *Algo) Decide(obs Observation) ([]domain.OrderRequest, error) {
	if a.tickSkip > 1 && obs.Tick%a.tickSkip != 0 {
		return nil, nil
	}

	v, err := a.fn(obs.Symbol, obs.Cash, obs.Shares)
	if err != nil {
		return nil, err
	}

	switch v {
	case Buy:
		a.holdStreak = 0
		return []domain.OrderRequest{
			domain.Limit(domain.OrderSideBuy, domain.ApplyBps(obs.Price, a.buyBps), a.quantity()),
		}, nil
	case Sell:
		a.holdStreak = 0
		return []domain.OrderRequest{
			domain.Limit(domain.OrderSideSell, domain.ApplyBps(obs.Price, -a.sellBps), a.quantity()),
		}, nil
	case Hold:
		return a.seed(obs), nil
	}
	return nil, fmt.Errorf("unknown verdict %v", v)
}

func (a *Algo) quantity() int64 {
	return 5 + a.rng.Int64N(14)
}

func (a *Algo) seed(obs Observation) []domain.OrderRequest {
	a.holdStreak++
	if a.holdStreak < a.seedTicks {
		return nil
	}
	a.holdStreak = 0

	if a.seedPreferSell && obs.Shares > 0 {
		return []domain.OrderRequest{
			domain.Limit(domain.OrderSideSell, domain.ApplyBps(obs.Price, -a.sellBps/2), min(3, obs.Shares)),
		}
	}
	if obs.Price > 0 && obs.Cash > obs.Price {
		return []domain.OrderRequest{
			domain.Limit(domain.OrderSideBuy, domain.ApplyBps(obs.Price, a.buyBps/2), min(3, obs.Cash/obs.Price)),
		}
	}
	return nil
}

// Always returns a VerdictFunc that answers v unconditionally.
func Always(v Verdict) VerdictFunc {
	return func(string, int64, int64) (Verdict, error) { return v, nil }
}

// Threshold returns a VerdictFunc that buys while holding fewer than
// target shares and sells once above it.
func Threshold(target int64) VerdictFunc {
	return func(_ string, _ int64, shares int64) (Verdict, error) {
		switch {
		case shares < target:
			return Buy, nil
		case shares > target:
			return Sell, nil
		}
		return Hold, nil
	}
}
