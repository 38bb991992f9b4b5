package domain

import (
	"github.com/shopspring/decimal"
)

// All escrow arithmetic works on non-negative integer amounts of the
// settlement asset's smallest unit. Division truncates toward zero (floor for
// non-negative inputs) via QuoRem, never via floating point, so results are
// exact and reproducible.

var oneHundred = decimal.NewFromInt(100)

// SplitCreationFee splits the market creation fee between the treasury and the
// burn side:
//
//	toTreasury = floor(fee × treasuryPercent / 100)
//	toBurn     = fee − toTreasury
//
// The rounding remainder always accrues to the burn side, keeping the treasury
// strictly bounded by the percentage.
func SplitCreationFee(fee decimal.Decimal, treasuryPercent int64) (toTreasury, toBurn decimal.Decimal) {
	toTreasury, _ = fee.Mul(decimal.NewFromInt(treasuryPercent)).QuoRem(oneHundred, 0)
	toBurn = fee.Sub(toTreasury)
	return toTreasury, toBurn
}

// ResolutionFee computes the platform's cut of a market's total pool:
//
//	platformFee = floor(totalPool × feePercent / 100)
//	prizePool   = totalPool − platformFee
func ResolutionFee(totalPool decimal.Decimal, feePercent int64) (prizePool, platformFee decimal.Decimal) {
	platformFee, _ = totalPool.Mul(decimal.NewFromInt(feePercent)).QuoRem(oneHundred, 0)
	prizePool = totalPool.Sub(platformFee)
	return prizePool, platformFee
}

// ProportionalPayout computes a winner's share of the prize pool:
//
//	payout = floor(stake × prizePool / winningPool)
//
// Truncation guarantees the sum of all winners' payouts never exceeds the
// prize pool; the undistributed remainder stays in escrow (see Dust).
// Returns ErrInvalidWinningPool when winningPool is zero.
func ProportionalPayout(stake, prizePool, winningPool decimal.Decimal) (decimal.Decimal, error) {
	if winningPool.IsZero() {
		return decimal.Zero, ErrInvalidWinningPool
	}
	payout, _ := stake.Mul(prizePool).QuoRem(winningPool, 0)
	return payout, nil
}

// Dust returns the portion of the prize pool that truncation leaves
// undistributed after every winning stake has been paid:
//
//	dust = prizePool − Σ floor(stakeᵢ × prizePool / winningPool)
//
// It is never swept to the treasury or burned; it stays in the escrow account.
func Dust(prizePool, winningPool decimal.Decimal, winningStakes []decimal.Decimal) (decimal.Decimal, error) {
	paid := decimal.Zero
	for _, s := range winningStakes {
		p, err := ProportionalPayout(s, prizePool, winningPool)
		if err != nil {
			return decimal.Zero, err
		}
		paid = paid.Add(p)
	}
	return prizePool.Sub(paid), nil
}
