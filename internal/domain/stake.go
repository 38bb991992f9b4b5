package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stake represents one participant's position in one market. A participant may
// hold at most one stake per market; it is created once and mutated exactly
// once, when the payout is claimed.
type Stake struct {
	Participant Address         `json:"participant"`
	MarketID    uint64          `json:"market_id"`
	Side        Side            `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Claimed     bool            `json:"claimed"`
	StakedAt    time.Time       `json:"staked_at"`
}

// Won reports whether this stake is on the winning side of a resolved market.
// Returns false when the market has no winner yet.
func (s *Stake) Won(m *Market) bool {
	return m.Winner != nil && s.Side == *m.Winner
}
