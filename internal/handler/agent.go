package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/marketsim/internal/agent"
	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/service"
	"github.com/efreitasn/marketsim/internal/sim"
	"github.com/go-chi/chi/v5"
)

// AgentHandler handles HTTP requests for agent endpoints.
type AgentHandler struct {
	sim *sim.Simulation
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(s *sim.Simulation) *AgentHandler {
	return &AgentHandler{sim: s}
}

// addAgentRequest is the JSON request body for POST /agents.
type addAgentRequest struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}

// standingResponse is one leaderboard row with money in dollars.
type standingResponse struct {
	Name              string  `json:"name"`
	ROI               float64 `json:"roi"`
	CurrentValue      float64 `json:"current_value"`
	Cash              float64 `json:"cash"`
	Stock             int64   `json:"stock"`
	Trades            int     `json:"trades"`
	LiquidityProvider bool    `json:"liquidity_provider"`
}

// leaderboardResponse is the JSON response for GET /leaderboard.
type leaderboardResponse struct {
	Ranked             []standingResponse `json:"ranked"`
	LiquidityProviders []standingResponse `json:"liquidity_providers"`
}

// agentStatsResponse is the JSON response for GET /agents/{name}.
type agentStatsResponse struct {
	standingResponse
	BaselineValue  float64 `json:"baseline_value"`
	ReservedCash   float64 `json:"reserved_cash"`
	ReservedShares int64   `json:"reserved_shares"`
	BuyCount       int     `json:"buy_count"`
	SellCount      int     `json:"sell_count"`
	AvgBuyPrice    float64 `json:"avg_buy_price"`
	AvgSellPrice   float64 `json:"avg_sell_price"`
	BuyVolume      int64   `json:"buy_volume"`
	SellVolume     int64   `json:"sell_volume"`
}

// orderListResponse is the JSON response for GET /agents/{name}/orders.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
	Total  int             `json:"total"`
}

func toStanding(s service.Standing) standingResponse {
	return standingResponse{
		Name:              s.Name,
		ROI:               s.ROI,
		CurrentValue:      domain.CentsToDollars(s.TotalValue),
		Cash:              domain.CentsToDollars(s.Cash),
		Stock:             s.Stock,
		Trades:            s.Trades,
		LiquidityProvider: s.LiquidityProvider,
	}
}

func toStandings(in []service.Standing) []standingResponse {
	out := make([]standingResponse, len(in))
	for i, s := range in {
		out[i] = toStanding(s)
	}
	return out
}

// Leaderboard handles GET /leaderboard.
func (h *AgentHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ranked, providers := h.sim.Leaderboard()
	WriteJSON(w, http.StatusOK, leaderboardResponse{
		Ranked:             toStandings(ranked),
		LiquidityProviders: toStandings(providers),
	})
}

// Add handles POST /agents.
func (h *AgentHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addAgentRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	strategy, err := agent.Build(req.Strategy, req.Name)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := h.sim.AddAgent(req.Name, strategy); err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"name":     req.Name,
		"strategy": req.Strategy,
	})
}

// Remove handles DELETE /agents/{name}.
func (h *AgentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.sim.RemoveAgent(name); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /agents/{name}.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	stats, err := h.sim.AgentStats(name)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, agentStatsResponse{
		standingResponse: toStanding(stats.Standing),
		BaselineValue:    domain.CentsToDollars(stats.Baseline),
		ReservedCash:     domain.CentsToDollars(stats.ReservedCash),
		ReservedShares:   stats.ReservedShares,
		BuyCount:         stats.Buys,
		SellCount:        stats.Sells,
		AvgBuyPrice:      domain.CentsToDollars(stats.AvgBuyPrice),
		AvgSellPrice:     domain.CentsToDollars(stats.AvgSellPrice),
		BuyVolume:        stats.BuyVolume,
		SellVolume:       stats.SellVolume,
	})
}

// ListOrders handles GET /agents/{name}/orders.
func (h *AgentHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var status *domain.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.OrderStatus(s)
		status = &st
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		var err error
		page, err = strconv.Atoi(p)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "page must be a valid integer")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return
		}
	}

	orders, total, err := h.sim.AgentOrders(name, status, page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}

	WriteJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Page:   page,
		Limit:  limit,
		Total:  total,
	})
}
