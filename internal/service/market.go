package service

import (
	"time"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/engine"
	"github.com/efreitasn/marketsim/internal/store"
)

const maxDepthLevels = 50

// PriceResponse is the traded reference price: VWAP over the trailing
// window of ticks ending at the last trade.
type PriceResponse struct {
	Symbol         string `json:"symbol"`
	CurrentPrice   *int64 `json:"current_price"` // nil when no trades ever
	WindowTicks    int    `json:"window_ticks"`
	TradesInWindow int    `json:"trades_in_window"`
	LastTradeTick  *int   `json:"last_trade_tick"` // nil when no trades ever
}

// BookResponse is a depth snapshot of the book.
type BookResponse struct {
	Symbol     string              `json:"symbol"`
	Bids       []engine.PriceLevel `json:"bids"`
	Asks       []engine.PriceLevel `json:"asks"`
	Spread     *int64              `json:"spread"` // nil if either side empty
	SnapshotAt time.Time           `json:"snapshot_at"`
}

// QuoteResponse is a read-only market order estimate.
type QuoteResponse struct {
	Symbol string           `json:"symbol"`
	Side   domain.OrderSide `json:"side"`
	*engine.QuoteResult
	QuotedAt time.Time `json:"quoted_at"`
}

// MarketService answers read-only questions about the market: traded
// price, depth, quotes and book statistics.
type MarketService struct {
	book       *engine.OrderBook
	tradeStore *store.TradeStore
	symbol     string
	vwapWindow int
}

// NewMarketService creates a new MarketService. book is nil when the
// simulation executes orders immediately.
func NewMarketService(symbol string, book *engine.OrderBook, tradeStore *store.TradeStore, vwapWindow int) *MarketService {
	return &MarketService{
		book:       book,
		tradeStore: tradeStore,
		symbol:     symbol,
		vwapWindow: vwapWindow,
	}
}

// GetPrice returns the VWAP of trades within the last vwapWindow ticks,
// counted back from the last trade. It returns a nil price if nothing has
// traded yet.
func (s *MarketService) GetPrice() *PriceResponse {
	trades := s.tradeStore.All()
	resp := &PriceResponse{
		Symbol:      s.symbol,
		WindowTicks: s.vwapWindow,
	}
	if len(trades) == 0 {
		return resp
	}

	last := trades[len(trades)-1]
	lastTick := last.Tick
	resp.LastTradeTick = &lastTick
	windowStart := last.Tick - s.vwapWindow + 1

	var sumPriceQty, sumQty int64
	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		if t.Tick < windowStart {
			break
		}
		sumPriceQty += t.Price * t.Quantity
		sumQty += t.Quantity
		resp.TradesInWindow++
	}

	if sumQty > 0 {
		vwap := sumPriceQty / sumQty
		resp.CurrentPrice = &vwap
	} else {
		p := last.Price
		resp.CurrentPrice = &p
	}
	return resp
}

// GetBook returns the top depth price levels of each side.
func (s *MarketService) GetBook(depth int) (*BookResponse, error) {
	if s.book == nil {
		return nil, domain.ErrOrderBookDisabled
	}
	if depth < 1 || depth > maxDepthLevels {
		return nil, &domain.ValidationError{
			Message: "depth must be between 1 and 50",
		}
	}

	d := s.book.Depth(depth)
	return &BookResponse{
		Symbol:     s.symbol,
		Bids:       d.Bids,
		Asks:       d.Asks,
		Spread:     d.Spread,
		SnapshotAt: time.Now(),
	}, nil
}

// GetQuote simulates a market order against the current book and returns
// the estimated result without placing an order.
func (s *MarketService) GetQuote(side domain.OrderSide, quantity int64) (*QuoteResponse, error) {
	if s.book == nil {
		return nil, domain.ErrOrderBookDisabled
	}
	if side != domain.OrderSideBuy && side != domain.OrderSideSell {
		return nil, &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
	if quantity <= 0 {
		return nil, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	return &QuoteResponse{
		Symbol:      s.symbol,
		Side:        side,
		QuoteResult: s.book.Quote(side, quantity),
		QuotedAt:    time.Now(),
	}, nil
}

// Stats returns the book summary, or ErrOrderBookDisabled.
func (s *MarketService) Stats() (engine.BookStats, error) {
	if s.book == nil {
		return engine.BookStats{}, domain.ErrOrderBookDisabled
	}
	return s.book.Stats(), nil
}
