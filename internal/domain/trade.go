package domain

import "time"

// MarketCounterparty is the counterparty name recorded for executions that
// happen against the market price instead of another agent's order.
const MarketCounterparty = "market"

// Trade represents a matched execution between a buy and a sell order.
// Trades are created only by matching and never mutated.
type Trade struct {
	TradeID     string
	Buyer       string
	Seller      string
	BuyOrderID  string
	SellOrderID string
	Price       int64 // cents
	Quantity    int64
	Tick        int
	ExecutedAt  time.Time
}

// Notional returns price × quantity in cents.
func (t *Trade) Notional() int64 {
	return t.Price * t.Quantity
}
