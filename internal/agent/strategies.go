package agent

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Random trades 1–3 shares at the current price with probability
// aggressiveness per tick, picking buy, sell or hold uniformly.
type Random struct {
	aggressiveness float64
	rng            *rand.Rand
}

// NewRandom creates a Random strategy seeded deterministically.
func NewRandom(aggressiveness float64, seed uint64) *Random {
	return &Random{aggressiveness: aggressiveness, rng: newRand(seed)}
}

func (r *Random) Decide(obs Observation) ([]domain.OrderRequest, error) {
	if r.rng.Float64() > r.aggressiveness {
		return nil, nil
	}
	switch r.rng.IntN(3) {
	case 0:
		if obs.Price <= 0 || obs.Cash <= obs.Price {
			return nil, nil
		}
		maxShares := min(3, obs.Cash/obs.Price)
		qty := 1 + r.rng.Int64N(maxShares)
		return []domain.OrderRequest{domain.Limit(domain.OrderSideBuy, obs.Price, qty)}, nil
	case 1:
		if obs.Shares <= 0 {
			return nil, nil
		}
		qty := 1 + r.rng.Int64N(min(3, obs.Shares))
		return []domain.OrderRequest{domain.Limit(domain.OrderSideSell, obs.Price, qty)}, nil
	}
	return nil, nil
}

// Momentum buys after three strictly rising prices and sells after three
// strictly falling ones, two shares at a time.
type Momentum struct {
	window *PriceWindow
}

// NewMomentum creates a Momentum strategy over the given window.
func NewMomentum(window *PriceWindow) *Momentum {
	return &Momentum{window: window}
}

func (m *Momentum) Decide(obs Observation) ([]domain.OrderRequest, error) {
	m.window.Push(obs.Price)
	if m.window.Len() < 3 {
		return nil, nil
	}
	p := m.window.Last(3)
	switch {
	case p[0] < p[1] && p[1] < p[2]:
		if obs.Price > 0 && obs.Cash > obs.Price {
			qty := min(2, obs.Cash/obs.Price)
			return []domain.OrderRequest{domain.Limit(domain.OrderSideBuy, obs.Price, qty)}, nil
		}
	case p[0] > p[1] && p[1] > p[2]:
		if obs.Shares > 0 {
			return []domain.OrderRequest{domain.Limit(domain.OrderSideSell, obs.Price, min(2, obs.Shares))}, nil
		}
	}
	return nil, nil
}

// MeanReversion sells when the price is more than threshold above the
// window mean and buys when it is more than threshold below.
type MeanReversion struct {
	window    *PriceWindow
	threshold decimal.Decimal
}

// NewMeanReversion creates a MeanReversion strategy. threshold is a
// fraction, e.g. 0.02 for 2%.
func NewMeanReversion(window *PriceWindow, threshold float64) *MeanReversion {
	return &MeanReversion{window: window, threshold: decimal.NewFromFloat(threshold)}
}

func (m *MeanReversion) Decide(obs Observation) ([]domain.OrderRequest, error) {
	m.window.Push(obs.Price)
	if !m.window.Full() {
		return nil, nil
	}
	mean := m.window.Mean()
	if mean.IsZero() {
		return nil, nil
	}
	deviation := decimal.NewFromInt(obs.Price).Sub(mean).Div(mean)

	switch {
	case deviation.GreaterThan(m.threshold):
		if obs.Shares > 0 {
			return []domain.OrderRequest{domain.Limit(domain.OrderSideSell, obs.Price, min(2, obs.Shares))}, nil
		}
	case deviation.LessThan(m.threshold.Neg()):
		if obs.Price > 0 && obs.Cash > obs.Price {
			qty := min(2, obs.Cash/obs.Price)
			return []domain.OrderRequest{domain.Limit(domain.OrderSideBuy, obs.Price, qty)}, nil
		}
	}
	return nil, nil
}

// MarketMaker quotes both sides every tick around the current price,
// spreadBps wide. Capacity clamping trims whichever side it cannot cover.
type MarketMaker struct {
	spreadBps float64
	quantity  int64
}

// NewMarketMaker creates a MarketMaker quoting quantity shares per side.
func NewMarketMaker(spreadBps float64, quantity int64) *MarketMaker {
	return &MarketMaker{spreadBps: spreadBps, quantity: quantity}
}

func (m *MarketMaker) ProvidesLiquidity() bool { return true }

func (m *MarketMaker) Decide(obs Observation) ([]domain.OrderRequest, error) {
	if obs.Price <= 0 {
		return nil, nil
	}
	half := m.spreadBps / 2
	return []domain.OrderRequest{
		domain.Limit(domain.OrderSideBuy, domain.ApplyBps(obs.Price, -half), m.quantity),
		domain.Limit(domain.OrderSideSell, domain.ApplyBps(obs.Price, half), m.quantity),
	}, nil
}

// Plan replays a fixed script: the requests listed for a tick are
// submitted on that tick, nothing otherwise.
type Plan map[int][]domain.OrderRequest

func (p Plan) Decide(obs Observation) ([]domain.OrderRequest, error) {
	return p[obs.Tick], nil
}
