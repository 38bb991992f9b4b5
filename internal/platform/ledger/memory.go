package ledger

import (
	"context"
	"sync"

	"github.com/outcomely/timelock/internal/domain"
	"github.com/shopspring/decimal"
)

// Memory is an in-process Ledger keeping balances in a map. Used in tests and
// single-node deployments where the settlement asset is managed off-platform.
type Memory struct {
	mu       sync.Mutex
	balances map[domain.Address]decimal.Decimal
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[domain.Address]decimal.Decimal)}
}

// Mint credits amount to an account out of thin air. Test setup helper.
func (l *Memory) Mint(account domain.Address, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balances[account].Add(amount)
}

// Transfer moves amount between accounts, all-or-nothing.
func (l *Memory) Transfer(_ context.Context, from, to domain.Address, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[from]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if bal.LessThan(amount) {
		return domain.ErrInsufficientBalance
	}
	l.balances[from] = bal.Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)
	return nil
}

// Balance returns the account balance; unknown accounts report zero.
func (l *Memory) Balance(_ context.Context, account domain.Address) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}
