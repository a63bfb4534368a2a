package store

import (
	"sync"

	"github.com/efreitasn/marketsim/internal/domain"
)

// PortfolioStore is a thread-safe in-memory store for agent accounts,
// keyed by agent name. It remembers insertion order so iteration is
// deterministic.
type PortfolioStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	order    []string
}

// NewPortfolioStore creates an empty PortfolioStore.
func NewPortfolioStore() *PortfolioStore {
	return &PortfolioStore{
		accounts: make(map[string]*domain.Account),
	}
}

// Create adds an account to the store. It returns
// domain.ErrAgentAlreadyExists if an account with the same name
// already exists.
func (s *PortfolioStore) Create(a domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.Name]; exists {
		return domain.ErrAgentAlreadyExists
	}
	s.accounts[a.Name] = &a
	s.order = append(s.order, a.Name)
	return nil
}

// Get returns a copy of the account. It returns domain.ErrAgentNotFound
// if the agent does not exist.
func (s *PortfolioStore) Get(name string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[name]
	if !ok {
		return domain.Account{}, domain.ErrAgentNotFound
	}
	return *a, nil
}

// Exists returns true if an account with the given name exists.
func (s *PortfolioStore) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[name]
	return ok
}

// Update applies fn to the stored account under the write lock. If fn
// returns an error the account is left unchanged.
func (s *PortfolioStore) Update(name string, fn func(a *domain.Account) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[name]
	if !ok {
		return domain.ErrAgentNotFound
	}
	next := *a
	if err := fn(&next); err != nil {
		return err
	}
	*a = next
	return nil
}

// Delete removes an account. It returns domain.ErrAgentNotFound if the
// agent does not exist.
func (s *PortfolioStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[name]; !ok {
		return domain.ErrAgentNotFound
	}
	delete(s.accounts, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns copies of all accounts in insertion order.
func (s *PortfolioStore) List() []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, *s.accounts[n])
	}
	return out
}

// Len returns the number of accounts.
func (s *PortfolioStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns a copy of every account that Restore can reinstate.
func (s *PortfolioStore) Snapshot() []domain.Account {
	return s.List()
}

// Restore replaces the store contents with a snapshot.
func (s *PortfolioStore) Restore(snap []domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = make(map[string]*domain.Account, len(snap))
	s.order = make([]string, 0, len(snap))
	for i := range snap {
		a := snap[i]
		s.accounts[a.Name] = &a
		s.order = append(s.order, a.Name)
	}
}
