package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/efreitasn/marketsim/internal/agent"
	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/sim"
	"github.com/efreitasn/marketsim/internal/ticks"
	"github.com/go-chi/chi/v5"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// once submits reqs on the first decision and nothing afterwards.
func once(reqs ...domain.OrderRequest) agent.Strategy {
	done := false
	return agent.Func(func(agent.Observation) ([]domain.OrderRequest, error) {
		if done {
			return nil, nil
		}
		done = true
		return reqs, nil
	})
}

func testConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Symbol = "TEST"
	cfg.MaxTicks = 0
	cfg.InitialCash = 10000
	cfg.InitialStock = 10
	return cfg
}

func newTestRouter(t *testing.T, cfg sim.Config) (*sim.Simulation, chi.Router) {
	t.Helper()
	s, err := sim.New(discardLogger(), cfg)
	if err != nil {
		t.Fatalf("failed to create simulation: %v", err)
	}
	return s, NewRouter(s, discardLogger())
}

// runMarket plays one tick at $1.00 where seller offers 2 at 100, buyer
// lifts 1 and bidder rests 1 at 99.
func runMarket(t *testing.T) (*sim.Simulation, chi.Router) {
	t.Helper()
	s, r := newTestRouter(t, testConfig())
	agents := map[string]agent.Strategy{
		"seller": once(domain.Limit(domain.OrderSideSell, 100, 2)),
		"buyer":  once(domain.Limit(domain.OrderSideBuy, 100, 1)),
		"bidder": once(domain.Limit(domain.OrderSideBuy, 99, 1)),
	}
	for _, name := range []string{"seller", "buyer", "bidder"} {
		if err := s.AddAgent(name, agents[name]); err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
	}
	if _, err := s.Run(context.Background(), ticks.FromPrices("TEST", 100)); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return s, r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	var resp errorResponse
	decode(t, w, &resp)
	if resp.Error != code {
		t.Errorf("error = %q, want %q", resp.Error, code)
	}
}

func TestHealthz(t *testing.T) {
	_, r := newTestRouter(t, testConfig())
	w := do(r, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestGetPrice(t *testing.T) {
	t.Run("null before any trade", func(t *testing.T) {
		_, r := newTestRouter(t, testConfig())
		w := do(r, http.MethodGet, "/price", "")
		var resp priceResponse
		decode(t, w, &resp)
		if resp.CurrentPrice != nil || resp.LastTradeTick != nil {
			t.Errorf("expected null price, got %+v", resp)
		}
	})

	t.Run("traded price in dollars", func(t *testing.T) {
		_, r := runMarket(t)
		w := do(r, http.MethodGet, "/price", "")
		var resp priceResponse
		decode(t, w, &resp)
		if resp.CurrentPrice == nil || *resp.CurrentPrice != 1.00 {
			t.Fatalf("current_price = %v, want 1.00", resp.CurrentPrice)
		}
		if resp.TradesInWin != 1 {
			t.Errorf("trades_in_window = %d, want 1", resp.TradesInWin)
		}
	})
}

func TestGetDepth(t *testing.T) {
	_, r := runMarket(t)

	w := do(r, http.MethodGet, "/depth", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp depthResponse
	decode(t, w, &resp)
	if len(resp.Bids) != 1 || resp.Bids[0].Price != 0.99 || resp.Bids[0].TotalQuantity != 1 {
		t.Errorf("bids = %+v, want one level 0.99x1", resp.Bids)
	}
	if len(resp.Asks) != 1 || resp.Asks[0].Price != 1.00 || resp.Asks[0].TotalQuantity != 1 {
		t.Errorf("asks = %+v, want one level 1.00x1", resp.Asks)
	}
	if resp.Spread == nil || *resp.Spread != 0.01 {
		t.Errorf("spread = %v, want 0.01", resp.Spread)
	}

	t.Run("invalid levels", func(t *testing.T) {
		assertError(t, do(r, http.MethodGet, "/depth?levels=abc", ""), http.StatusBadRequest, "validation_error")
		assertError(t, do(r, http.MethodGet, "/depth?levels=0", ""), http.StatusBadRequest, "validation_error")
	})

	t.Run("book disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.EnableOrderBook = false
		_, r := newTestRouter(t, cfg)
		assertError(t, do(r, http.MethodGet, "/depth", ""), http.StatusConflict, "order_book_disabled")
	})
}

func TestGetQuote(t *testing.T) {
	_, r := runMarket(t)

	w := do(r, http.MethodGet, "/quote?side=buy&quantity=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp quoteResponse
	decode(t, w, &resp)
	if resp.QuantityAvailable != 1 || resp.FullyFillable {
		t.Errorf("available = %d fillable = %v, want 1 and false", resp.QuantityAvailable, resp.FullyFillable)
	}
	if resp.EstimatedTotal == nil || *resp.EstimatedTotal != 1.00 {
		t.Errorf("estimated_total = %v, want 1.00", resp.EstimatedTotal)
	}

	tests := []struct {
		name  string
		query string
	}{
		{"missing quantity", "/quote?side=buy"},
		{"bad side", "/quote?side=hold&quantity=1"},
		{"zero quantity", "/quote?side=sell&quantity=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, do(r, http.MethodGet, tt.query, ""), http.StatusBadRequest, "validation_error")
		})
	}
}

func TestLeaderboard(t *testing.T) {
	_, r := runMarket(t)

	w := do(r, http.MethodGet, "/leaderboard", "")
	var resp leaderboardResponse
	decode(t, w, &resp)
	if len(resp.Ranked) != 3 {
		t.Fatalf("ranked = %d rows, want 3", len(resp.Ranked))
	}
	if len(resp.LiquidityProviders) != 0 {
		t.Errorf("liquidity_providers = %d rows, want 0", len(resp.LiquidityProviders))
	}
}

func TestGetAgent(t *testing.T) {
	_, r := runMarket(t)

	w := do(r, http.MethodGet, "/agents/buyer", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp agentStatsResponse
	decode(t, w, &resp)
	if resp.Stock != 11 {
		t.Errorf("stock = %d, want 11", resp.Stock)
	}
	if resp.Cash != 99.00 {
		t.Errorf("cash = %v, want 99.00", resp.Cash)
	}
	if resp.BuyCount != 1 || resp.AvgBuyPrice != 1.00 {
		t.Errorf("buys = %d avg = %v, want 1 at 1.00", resp.BuyCount, resp.AvgBuyPrice)
	}

	assertError(t, do(r, http.MethodGet, "/agents/nobody", ""), http.StatusNotFound, "agent_not_found")
}

func TestListOrdersAndGetOrder(t *testing.T) {
	_, r := runMarket(t)

	w := do(r, http.MethodGet, "/agents/seller/orders", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var list orderListResponse
	decode(t, w, &list)
	if list.Total != 1 || len(list.Orders) != 1 || list.Limit != 20 {
		t.Fatalf("list = %+v, want one order with limit 20", list)
	}
	o := list.Orders[0]
	if o.Status != string(domain.OrderStatusPartiallyFilled) || o.FilledQuantity != 1 || o.RemainingQuantity != 1 {
		t.Errorf("order = %+v, want partially filled 1/2", o)
	}

	w = do(r, http.MethodGet, "/orders/"+o.OrderID, "")
	var got orderResponse
	decode(t, w, &got)
	if len(got.Trades) != 1 || got.Trades[0].Counterparty != "buyer" {
		t.Errorf("trades = %+v, want one against buyer", got.Trades)
	}
	if got.AveragePrice == nil || *got.AveragePrice != 1.00 {
		t.Errorf("average_price = %v, want 1.00", got.AveragePrice)
	}

	t.Run("status filter", func(t *testing.T) {
		w := do(r, http.MethodGet, "/agents/seller/orders?status=filled", "")
		var list orderListResponse
		decode(t, w, &list)
		if list.Total != 0 {
			t.Errorf("total = %d, want 0", list.Total)
		}
	})

	t.Run("invalid params", func(t *testing.T) {
		for _, q := range []string{"?page=x", "?limit=0", "?status=bogus"} {
			assertError(t, do(r, http.MethodGet, "/agents/seller/orders"+q, ""), http.StatusBadRequest, "validation_error")
		}
	})

	t.Run("unknown agent", func(t *testing.T) {
		assertError(t, do(r, http.MethodGet, "/agents/nobody/orders", ""), http.StatusNotFound, "agent_not_found")
	})

	t.Run("unknown order", func(t *testing.T) {
		assertError(t, do(r, http.MethodGet, "/orders/missing", ""), http.StatusNotFound, "order_not_found")
	})
}

func TestAddAndRemoveAgent(t *testing.T) {
	s, r := newTestRouter(t, testConfig())

	w := do(r, http.MethodPost, "/agents", `{"name":"walker","strategy":"random"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", w.Code, w.Body.String())
	}
	if _, err := s.AgentStats("walker"); err != nil {
		t.Fatalf("agent not registered: %v", err)
	}

	assertError(t, do(r, http.MethodPost, "/agents", `{"name":"walker","strategy":"momentum"}`),
		http.StatusConflict, "agent_already_exists")
	assertError(t, do(r, http.MethodPost, "/agents", `{"name":"x","strategy":"oracle"}`),
		http.StatusBadRequest, "validation_error")
	assertError(t, do(r, http.MethodPost, "/agents", `{"name":"bad name","strategy":"random"}`),
		http.StatusBadRequest, "validation_error")
	assertError(t, do(r, http.MethodPost, "/agents", `{"name":`),
		http.StatusBadRequest, "invalid_request")

	w = do(r, http.MethodDelete, "/agents/walker", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	assertError(t, do(r, http.MethodDelete, "/agents/walker", ""), http.StatusNotFound, "agent_not_found")
}

func TestAddAgent_WrongContentType(t *testing.T) {
	_, r := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/agents", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assertError(t, w, http.StatusBadRequest, "invalid_request")
}

func TestAddAgent_AfterRun(t *testing.T) {
	_, r := runMarket(t)
	assertError(t, do(r, http.MethodPost, "/agents", `{"name":"late","strategy":"random"}`),
		http.StatusConflict, "simulation_already_started")
}

func TestStatsAndResults(t *testing.T) {
	t.Run("results pending", func(t *testing.T) {
		_, r := newTestRouter(t, testConfig())
		assertError(t, do(r, http.MethodGet, "/results", ""), http.StatusConflict, "simulation_running")
	})

	t.Run("completed run", func(t *testing.T) {
		_, r := runMarket(t)

		w := do(r, http.MethodGet, "/stats", "")
		var stats struct {
			State  string `json:"state"`
			Trades int    `json:"trades"`
		}
		decode(t, w, &stats)
		if stats.State != sim.StateCompleted.String() || stats.Trades != 1 {
			t.Errorf("stats = %+v, want completed with 1 trade", stats)
		}

		w = do(r, http.MethodGet, "/results", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var res struct {
			Symbol string `json:"symbol"`
			State  string `json:"state"`
		}
		decode(t, w, &res)
		if res.Symbol != "TEST" || res.State != sim.StateCompleted.String() {
			t.Errorf("results = %+v", res)
		}
	})
}

func TestCancelOrder(t *testing.T) {
	_, r := runMarket(t)

	w := do(r, http.MethodGet, "/agents/bidder/orders", "")
	var list orderListResponse
	decode(t, w, &list)
	if len(list.Orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(list.Orders))
	}
	id := list.Orders[0].OrderID

	w = do(r, http.MethodDelete, "/orders/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var o orderResponse
	decode(t, w, &o)
	if o.Status != string(domain.OrderStatusCancelled) || o.CancelledQuantity != 1 {
		t.Errorf("order = %+v, want cancelled with 1 cancelled", o)
	}

	w = do(r, http.MethodGet, "/depth", "")
	var depth depthResponse
	decode(t, w, &depth)
	if len(depth.Bids) != 0 {
		t.Errorf("bids = %+v, want none", depth.Bids)
	}

	assertError(t, do(r, http.MethodDelete, "/orders/"+id, ""), http.StatusConflict, "order_not_cancellable")
	assertError(t, do(r, http.MethodDelete, "/orders/missing", ""), http.StatusNotFound, "order_not_found")
}
