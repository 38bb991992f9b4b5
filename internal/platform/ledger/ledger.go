// Package ledger is the asset-transfer collaborator: it moves amounts of the
// settlement asset between accounts. The engine issues a transfer only after
// all preconditions have passed, so a rejected transfer never leaves escrow
// records partially updated.
package ledger

import (
	"context"

	"github.com/outcomely/timelock/internal/domain"
	"github.com/shopspring/decimal"
)

// Well-known accounts. The escrow account holds every pooled stake and the
// treasury; the burn account is a one-way sink whose balance is considered
// permanently removed from circulation.
const (
	EscrowAccount = domain.Address("escrow")
	BurnAccount   = domain.Address("burn")
)

// Ledger moves value between accounts.
type Ledger interface {
	// Transfer moves amount from one account to another. It returns
	// ErrInsufficientBalance when the source cannot cover the amount and
	// ErrAccountNotFound for an unknown source; in both cases no balance
	// changes.
	Transfer(ctx context.Context, from, to domain.Address, amount decimal.Decimal) error

	// Balance returns the current balance of an account. Unknown accounts
	// report zero.
	Balance(ctx context.Context, account domain.Address) (decimal.Decimal, error)
}
