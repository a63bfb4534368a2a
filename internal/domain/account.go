package domain

// Account is everything the simulation tracks for one agent: its
// portfolio, its ROI baseline and running trade statistics.
type Account struct {
	Name              string
	LiquidityProvider bool
	Portfolio         Portfolio
	Baseline          int64 // cents, portfolio value at the first observed price
	HasBaseline       bool
	Stats             TradeStats
}

// TradeStats accumulates an agent's executions.
type TradeStats struct {
	Trades       int
	Buys         int
	Sells        int
	BuyVolume    int64 // shares
	SellVolume   int64
	BuyNotional  int64 // cents
	SellNotional int64
}

// Record folds one execution into the stats.
func (s *TradeStats) Record(side OrderSide, price, qty int64) {
	s.Trades++
	if side == OrderSideBuy {
		s.Buys++
		s.BuyVolume += qty
		s.BuyNotional += price * qty
		return
	}
	s.Sells++
	s.SellVolume += qty
	s.SellNotional += price * qty
}

// AvgBuyPrice returns the volume-weighted average buy price, or 0.
func (s TradeStats) AvgBuyPrice() int64 {
	if s.BuyVolume == 0 {
		return 0
	}
	return s.BuyNotional / s.BuyVolume
}

// AvgSellPrice returns the volume-weighted average sell price, or 0.
func (s TradeStats) AvgSellPrice() int64 {
	if s.SellVolume == 0 {
		return 0
	}
	return s.SellNotional / s.SellVolume
}
