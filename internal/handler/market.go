package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/sim"
)

const timeLayout = "2006-01-02T15:04:05Z"

// MarketHandler handles HTTP requests for market endpoints.
type MarketHandler struct {
	sim *sim.Simulation
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(s *sim.Simulation) *MarketHandler {
	return &MarketHandler{sim: s}
}

// priceResponse is the JSON response for GET /price.
type priceResponse struct {
	Symbol        string   `json:"symbol"`
	CurrentPrice  *float64 `json:"current_price"`
	WindowTicks   int      `json:"window_ticks"`
	TradesInWin   int      `json:"trades_in_window"`
	LastTradeTick *int     `json:"last_trade_tick"`
}

// bookLevelResponse is a single price level in the depth response.
type bookLevelResponse struct {
	Price         float64 `json:"price"`
	TotalQuantity int64   `json:"total_quantity"`
	OrderCount    int     `json:"order_count"`
}

// depthResponse is the JSON response for GET /depth.
type depthResponse struct {
	Symbol     string              `json:"symbol"`
	Bids       []bookLevelResponse `json:"bids"`
	Asks       []bookLevelResponse `json:"asks"`
	Spread     *float64            `json:"spread"`
	SnapshotAt string              `json:"snapshot_at"`
}

// quoteLevelResponse is a single price level in the quote response.
type quoteLevelResponse struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// quoteResponse is the JSON response for GET /quote.
type quoteResponse struct {
	Symbol            string               `json:"symbol"`
	Side              string               `json:"side"`
	QuantityRequested int64                `json:"quantity_requested"`
	QuantityAvailable int64                `json:"quantity_available"`
	FullyFillable     bool                 `json:"fully_fillable"`
	EstimatedAvgPrice *float64             `json:"estimated_average_price"`
	EstimatedTotal    *float64             `json:"estimated_total"`
	PriceLevels       []quoteLevelResponse `json:"price_levels"`
	QuotedAt          string               `json:"quoted_at"`
}

func dollars(cents *int64) *float64 {
	if cents == nil {
		return nil
	}
	v := domain.CentsToDollars(*cents)
	return &v
}

// GetStats handles GET /stats.
func (h *MarketHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.sim.LiveStats())
}

// GetPrice handles GET /price.
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	price := h.sim.Price()
	WriteJSON(w, http.StatusOK, priceResponse{
		Symbol:        price.Symbol,
		CurrentPrice:  dollars(price.CurrentPrice),
		WindowTicks:   price.WindowTicks,
		TradesInWin:   price.TradesInWindow,
		LastTradeTick: price.LastTradeTick,
	})
}

// GetDepth handles GET /depth.
func (h *MarketHandler) GetDepth(w http.ResponseWriter, r *http.Request) {
	// Parse levels query param (default from config, max 50).
	levels := h.sim.Config().DepthLevels
	if l := r.URL.Query().Get("levels"); l != "" {
		var err error
		levels, err = strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "levels must be a valid integer")
			return
		}
	}

	book, err := h.sim.MarketDepth(levels)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	bids := make([]bookLevelResponse, len(book.Bids))
	for i, b := range book.Bids {
		bids[i] = bookLevelResponse{
			Price:         domain.CentsToDollars(b.Price),
			TotalQuantity: b.TotalQuantity,
			OrderCount:    b.OrderCount,
		}
	}

	asks := make([]bookLevelResponse, len(book.Asks))
	for i, a := range book.Asks {
		asks[i] = bookLevelResponse{
			Price:         domain.CentsToDollars(a.Price),
			TotalQuantity: a.TotalQuantity,
			OrderCount:    a.OrderCount,
		}
	}

	WriteJSON(w, http.StatusOK, depthResponse{
		Symbol:     book.Symbol,
		Bids:       bids,
		Asks:       asks,
		Spread:     dollars(book.Spread),
		SnapshotAt: book.SnapshotAt.UTC().Format(timeLayout),
	})
}

// GetQuote handles GET /quote.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	side := r.URL.Query().Get("side")
	quantityStr := r.URL.Query().Get("quantity")

	quantity, err := strconv.ParseInt(quantityStr, 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "quantity must be a positive integer")
		return
	}

	quote, err := h.sim.Quote(domain.OrderSide(side), quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	priceLevels := make([]quoteLevelResponse, len(quote.PriceLevels))
	for i, pl := range quote.PriceLevels {
		priceLevels[i] = quoteLevelResponse{
			Price:    domain.CentsToDollars(pl.Price),
			Quantity: pl.Quantity,
		}
	}

	WriteJSON(w, http.StatusOK, quoteResponse{
		Symbol:            quote.Symbol,
		Side:              string(quote.Side),
		QuantityRequested: quote.QuantityRequested,
		QuantityAvailable: quote.QuantityAvailable,
		FullyFillable:     quote.FullyFillable,
		EstimatedAvgPrice: dollars(quote.EstimatedAvgPrice),
		EstimatedTotal:    dollars(quote.EstimatedTotal),
		PriceLevels:       priceLevels,
		QuotedAt:          quote.QuotedAt.UTC().Format(timeLayout),
	})
}

// GetResults handles GET /results. It answers 409 until the run finishes.
func (h *MarketHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	res := h.sim.Results()
	if res == nil {
		WriteError(w, http.StatusConflict, "simulation_running", "results are available once the run finishes")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = res.WriteJSON(w)
}
