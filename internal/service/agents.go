package service

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/ledger"
	"github.com/efreitasn/marketsim/internal/store"
)

var agentNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

// RegisterAgentRequest represents the input for agent registration.
type RegisterAgentRequest struct {
	Name              string
	LiquidityProvider bool
	InitialCash       int64 // cents
	InitialStock      int64
}

// Standing is one leaderboard row.
type Standing struct {
	Name              string  `json:"name"`
	ROI               float64 `json:"roi"`
	TotalValue        int64   `json:"current_value"`
	Cash              int64   `json:"cash"`
	Stock             int64   `json:"stock"`
	Trades            int     `json:"trades"`
	LiquidityProvider bool    `json:"liquidity_provider"`
}

// AgentStats is the per-agent performance summary.
type AgentStats struct {
	Standing
	Baseline       int64 `json:"baseline_value"`
	ReservedCash   int64 `json:"reserved_cash"`
	ReservedShares int64 `json:"reserved_shares"`
	Buys           int   `json:"buy_count"`
	Sells          int   `json:"sell_count"`
	AvgBuyPrice    int64 `json:"avg_buy_price"`
	AvgSellPrice   int64 `json:"avg_sell_price"`
	BuyVolume      int64 `json:"buy_volume"`
	SellVolume     int64 `json:"sell_volume"`
}

// AgentManager owns agent portfolios: registration, trade settlement, ROI
// baselines and the leaderboard.
type AgentManager struct {
	store  *store.PortfolioStore
	ledger *ledger.Ledger
}

// NewAgentManager creates a new AgentManager.
func NewAgentManager(store *store.PortfolioStore, ledger *ledger.Ledger) *AgentManager {
	return &AgentManager{
		store:  store,
		ledger: ledger,
	}
}

// ValidateAgentName rejects names that are malformed or reserved for the
// market counterparty.
func ValidateAgentName(name string) error {
	if !agentNameRegex.MatchString(name) {
		return &domain.ValidationError{
			Message: "agent name must match ^[a-zA-Z0-9_.-]{1,64}$",
		}
	}
	if name == domain.MarketCounterparty {
		return &domain.ValidationError{
			Message: fmt.Sprintf("agent name %q is reserved", name),
		}
	}
	return nil
}

// Register validates the request and opens an account for the agent.
func (m *AgentManager) Register(req RegisterAgentRequest) (domain.Account, error) {
	if err := ValidateAgentName(req.Name); err != nil {
		return domain.Account{}, err
	}
	if req.InitialCash < 0 {
		return domain.Account{}, &domain.ValidationError{Message: "initial cash must be >= 0"}
	}
	if req.InitialStock < 0 {
		return domain.Account{}, &domain.ValidationError{Message: "initial stock must be >= 0"}
	}

	acc := domain.Account{
		Name:              req.Name,
		LiquidityProvider: req.LiquidityProvider,
		Portfolio:         domain.Portfolio{Cash: req.InitialCash, Stock: req.InitialStock},
	}
	if err := m.store.Create(acc); err != nil {
		return domain.Account{}, err
	}
	return acc, nil
}

// Remove closes the agent's account. Its live orders must already be
// cancelled.
func (m *AgentManager) Remove(name string) error {
	return m.store.Delete(name)
}

// Get returns a copy of the agent's account.
func (m *AgentManager) Get(name string) (domain.Account, error) {
	return m.store.Get(name)
}

// Accounts returns every account in registration order.
func (m *AgentManager) Accounts() []domain.Account {
	return m.store.List()
}

// SetBaselines fixes the ROI baseline of every agent that does not have one
// yet at its portfolio value marked at price. Calling it again never moves
// an existing baseline.
func (m *AgentManager) SetBaselines(price int64) {
	for _, a := range m.store.List() {
		if a.HasBaseline {
			continue
		}
		_ = m.store.Update(a.Name, func(acc *domain.Account) error {
			if !acc.HasBaseline {
				acc.Baseline = acc.Portfolio.TotalValue(price)
				acc.HasBaseline = true
			}
			return nil
		})
	}
}

// Settle applies a trade to both portfolios exactly once: the buyer pays
// price × quantity and receives the shares, the seller the reverse. The
// market counterparty has no portfolio. An unknown agent means the books
// are already inconsistent and is reported as an invariant violation.
func (m *AgentManager) Settle(t *domain.Trade) error {
	notional := t.Notional()
	for _, name := range []string{t.Buyer, t.Seller} {
		if name != domain.MarketCounterparty && !m.store.Exists(name) {
			return fmt.Errorf("settling trade %s: agent %s: %w", t.TradeID, name, domain.ErrInvariantViolation)
		}
	}

	if t.Buyer != domain.MarketCounterparty {
		err := m.store.Update(t.Buyer, func(a *domain.Account) error {
			a.Portfolio.Cash -= notional
			a.Portfolio.Stock += t.Quantity
			a.Stats.Record(domain.OrderSideBuy, t.Price, t.Quantity)
			return nil
		})
		if err != nil {
			return fmt.Errorf("settling trade %s buyer: %w", t.TradeID, domain.ErrInvariantViolation)
		}
	}
	if t.Seller != domain.MarketCounterparty {
		err := m.store.Update(t.Seller, func(a *domain.Account) error {
			a.Portfolio.Cash += notional
			a.Portfolio.Stock -= t.Quantity
			a.Stats.Record(domain.OrderSideSell, t.Price, t.Quantity)
			return nil
		})
		if err != nil {
			return fmt.Errorf("settling trade %s seller: %w", t.TradeID, domain.ErrInvariantViolation)
		}
	}
	return nil
}

// Check verifies the reservation invariants for one agent against its
// current portfolio.
func (m *AgentManager) Check(name string) error {
	if name == domain.MarketCounterparty {
		return nil
	}
	a, err := m.store.Get(name)
	if err != nil {
		return fmt.Errorf("checking agent %s: %w", name, domain.ErrInvariantViolation)
	}
	return m.ledger.Check(name, a.Portfolio)
}

func standing(a domain.Account, mark int64) Standing {
	return Standing{
		Name:              a.Name,
		ROI:               a.Portfolio.ROI(a.Baseline, mark),
		TotalValue:        a.Portfolio.TotalValue(mark),
		Cash:              a.Portfolio.Cash,
		Stock:             a.Portfolio.Stock,
		Trades:            a.Stats.Trades,
		LiquidityProvider: a.LiquidityProvider,
	}
}

// Leaderboard ranks competitive agents by ROI descending, marked at mark.
// Liquidity providers are ranked separately. Ties break by name.
func (m *AgentManager) Leaderboard(mark int64) (ranked, providers []Standing) {
	ranked = make([]Standing, 0)
	providers = make([]Standing, 0)
	for _, a := range m.store.List() {
		s := standing(a, mark)
		if a.LiquidityProvider {
			providers = append(providers, s)
		} else {
			ranked = append(ranked, s)
		}
	}
	byROI := func(rows []Standing) {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].ROI != rows[j].ROI {
				return rows[i].ROI > rows[j].ROI
			}
			return rows[i].Name < rows[j].Name
		})
	}
	byROI(ranked)
	byROI(providers)
	return ranked, providers
}

// Stats returns the performance summary of one agent marked at mark.
func (m *AgentManager) Stats(name string, mark int64) (*AgentStats, error) {
	a, err := m.store.Get(name)
	if err != nil {
		return nil, err
	}
	cash, shares := m.ledger.Reserved(name)
	return &AgentStats{
		Standing:       standing(a, mark),
		Baseline:       a.Baseline,
		ReservedCash:   cash,
		ReservedShares: shares,
		Buys:           a.Stats.Buys,
		Sells:          a.Stats.Sells,
		AvgBuyPrice:    a.Stats.AvgBuyPrice(),
		AvgSellPrice:   a.Stats.AvgSellPrice(),
		BuyVolume:      a.Stats.BuyVolume,
		SellVolume:     a.Stats.SellVolume,
	}, nil
}

// Snapshot captures every account so a failed tick can be rolled back.
func (m *AgentManager) Snapshot() []domain.Account {
	return m.store.Snapshot()
}

// Restore rolls accounts back to a snapshot.
func (m *AgentManager) Restore(snap []domain.Account) {
	m.store.Restore(snap)
}
