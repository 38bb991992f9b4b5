// Package domain defines the core business entities and money arithmetic for
// the timelock binary-outcome prediction-market escrow.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// Address identifies an account on the settlement ledger.
type Address string

// MarketStatus represents the lifecycle state of a market.
// Transitions only move forward: Open → Resolved or Open → Cancelled.
type MarketStatus string

const (
	StatusOpen MarketStatus = "open" // accepting stakes

	// StatusLocked is reserved for a future pre-resolution phase that stops
	// new stakes before the unlock deadline. No transition currently enters
	// it; it exists so persisted records and clients already know the name.
	StatusLocked MarketStatus = "locked"

	StatusResolved  MarketStatus = "resolved"  // winner set, claims allowed
	StatusCancelled MarketStatus = "cancelled" // voided, creator refunded
)

// Side is the outcome a participant stakes on.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// IsValid returns true if the side is a recognised outcome.
func (s Side) IsValid() bool {
	return s == SideYes || s == SideNo
}

// Category is an informational label attached to a market at creation.
type Category string

const (
	CategoryFinance       Category = "finance"
	CategoryTechnology    Category = "technology"
	CategorySports        Category = "sports"
	CategoryPolitics      Category = "politics"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

// IsValid returns true if the category is one of the closed set.
func (c Category) IsValid() bool {
	switch c {
	case CategoryFinance, CategoryTechnology, CategorySports,
		CategoryPolitics, CategoryEntertainment, CategoryOther:
		return true
	}
	return false
}

// Question length bounds, enforced at market creation.
const (
	MinQuestionLen = 10
	MaxQuestionLen = 200
)

// ──────────────────────────────────────────────────────────────────────────────
// Market
// ──────────────────────────────────────────────────────────────────────────────

// Market represents one YES/NO betting question. Pools hold integer amounts of
// the settlement asset escrowed by the contract account; while the market is
// Open they only ever grow.
type Market struct {
	ID           uint64          `json:"id"`
	Creator      Address         `json:"creator"`
	Question     string          `json:"question"`
	UnlockTime   time.Time       `json:"unlock_time"`
	CreatedAt    time.Time       `json:"created_at"`
	YesPool      decimal.Decimal `json:"yes_pool"`
	NoPool       decimal.Decimal `json:"no_pool"`
	Status       MarketStatus    `json:"status"`
	Winner       *Side           `json:"winner,omitempty"` // set exactly once, on resolution
	Category     Category        `json:"category"`
	Participants uint32          `json:"participants"`
}

// TotalPool returns the sum of both pools.
func (m *Market) TotalPool() decimal.Decimal {
	return m.YesPool.Add(m.NoPool)
}

// PoolFor returns the pool holding stakes on the given side.
func (m *Market) PoolFor(side Side) decimal.Decimal {
	if side == SideYes {
		return m.YesPool
	}
	return m.NoPool
}

// AddToPool adds amount to the chosen side's pool.
func (m *Market) AddToPool(side Side, amount decimal.Decimal) {
	if side == SideYes {
		m.YesPool = m.YesPool.Add(amount)
	} else {
		m.NoPool = m.NoPool.Add(amount)
	}
}

// IsOpen returns true while the market accepts stakes.
func (m *Market) IsOpen() bool {
	return m.Status == StatusOpen
}

// IsResolved returns true after a winner has been set.
func (m *Market) IsResolved() bool {
	return m.Status == StatusResolved
}

// IsTerminal returns true once the market can no longer change state.
func (m *Market) IsTerminal() bool {
	return m.Status == StatusResolved || m.Status == StatusCancelled
}

// Expired reports whether the staking window has closed at the given time.
// Staking requires now < UnlockTime; resolution requires now ≥ UnlockTime.
func (m *Market) Expired(now time.Time) bool {
	return !now.Before(m.UnlockTime)
}

// ValidateQuestion checks the 10–200 character bound on the question text.
func ValidateQuestion(q string) error {
	if len(q) < MinQuestionLen || len(q) > MaxQuestionLen {
		return ErrQuestionLength
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Stats — aggregate read model
// ──────────────────────────────────────────────────────────────────────────────

// Stats is a read-only aggregate over all markets plus the treasury scalars.
type Stats struct {
	TotalMarkets     uint64          `json:"total_markets"`
	ActiveMarkets    uint64          `json:"active_markets"`
	ResolvedMarkets  uint64          `json:"resolved_markets"`
	CancelledMarkets uint64          `json:"cancelled_markets"`
	TotalVolume      decimal.Decimal `json:"total_volume"`
	TreasuryBalance  decimal.Decimal `json:"treasury_balance"`
	TotalBurned      decimal.Decimal `json:"total_burned"`
}
