package ledger

import "sync"

// Accounts hands out one Ledger per account so every job of an owner draws
// from the same allowance.
type Accounts struct {
	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// NewAccounts returns an empty account registry.
func NewAccounts() *Accounts {
	return &Accounts{ledgers: make(map[string]*Ledger)}
}

// For returns the ledger of owner, opening it with the allowance of tier on
// first use. The tier of an existing ledger is not changed.
func (a *Accounts) For(owner string, tier Tier) *Ledger {
	a.mu.Lock()
	defer a.mu.Unlock()

	if l, ok := a.ledgers[owner]; ok {
		return l
	}
	l := New(tier)
	a.ledgers[owner] = l
	return l
}
