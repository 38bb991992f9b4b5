package engine

import (
	"context"
	"fmt"

	"github.com/outcomely/timelock/internal/domain"
	"github.com/outcomely/timelock/internal/platform/ledger"
	"github.com/outcomely/timelock/internal/store"
	"github.com/shopspring/decimal"
)

// Resolve sets the winning side of a market whose unlock time has passed.
// Admin only. The platform fee is carved out of the total pool and credited to
// the treasury once, here; the remainder becomes the prize pool that winners
// claim against.
func (e *Engine) Resolve(ctx context.Context, marketID uint64, winner domain.Side) error {
	if _, err := e.requireAdmin(ctx); err != nil {
		return err
	}
	if !winner.IsValid() {
		return domain.ErrInvalidSide
	}

	mu := e.lockMarket(marketID)
	defer mu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	market, err := getMarket(ctx, e.store, marketID)
	if err != nil {
		return err
	}
	if !market.IsOpen() {
		return domain.ErrMarketNotOpen
	}
	if !market.Expired(e.clock.Now()) {
		return domain.ErrTooEarly
	}

	prizePool, platformFee := domain.ResolutionFee(market.TotalPool(), e.params.PlatformFeePercent)

	err = e.store.Update(ctx, func(tx store.Tx) error {
		m, err := getMarket(ctx, tx, marketID)
		if err != nil {
			return err
		}
		m.Status = domain.StatusResolved
		w := winner
		m.Winner = &w
		if err := putMarket(ctx, tx, m); err != nil {
			return err
		}

		treasury, err := getAmount(ctx, tx, keyTreasury)
		if err != nil {
			return err
		}
		return putAmount(ctx, tx, keyTreasury, treasury.Add(platformFee))
	})
	if err != nil {
		return err
	}

	e.emit.Emit(EventMarketResolved, map[string]any{
		"market_id":    marketID,
		"winner":       winner,
		"prize_pool":   prizePool,
		"platform_fee": platformFee,
	})
	return nil
}

// Cancel voids a market that is still in its cancel window and has no
// participants beyond the creator. Admin only. The creator's full original
// payment — creation fee plus initial stake — is refunded from escrow.
func (e *Engine) Cancel(ctx context.Context, marketID uint64) error {
	if _, err := e.requireAdmin(ctx); err != nil {
		return err
	}

	mu := e.lockMarket(marketID)
	defer mu.Unlock()

	market, err := getMarket(ctx, e.store, marketID)
	if err != nil {
		return err
	}
	if !market.IsOpen() {
		return domain.ErrMarketNotOpen
	}
	now := e.clock.Now()
	if now.After(market.CreatedAt.Add(e.params.CancelWindow)) || market.Participants > 1 {
		return domain.ErrCancelWindowClosed
	}

	stake, err := getStake(ctx, e.store, marketID, market.Creator)
	if err != nil {
		return err
	}

	err = e.store.Update(ctx, func(tx store.Tx) error {
		m, err := getMarket(ctx, tx, marketID)
		if err != nil {
			return err
		}
		m.Status = domain.StatusCancelled
		return putMarket(ctx, tx, m)
	})
	if err != nil {
		return err
	}

	refund := e.params.CreationFee.Add(stake.Amount)
	if err := e.ledger.Transfer(ctx, ledger.EscrowAccount, market.Creator, refund); err != nil {
		return fmt.Errorf("engine.Cancel: refund creator: %w", err)
	}

	e.emit.Emit(EventMarketCancelled, map[string]any{
		"market_id": marketID,
		"creator":   market.Creator,
		"refund":    refund,
	})
	return nil
}

// Claim pays out a winning stake's proportional share of the prize pool:
// floor(stake × prizePool / winningPool). The stake is marked claimed before
// the outbound transfer, so a retried claim can never pay twice.
func (e *Engine) Claim(ctx context.Context, participant domain.Address, marketID uint64) (decimal.Decimal, error) {
	if err := e.guard.RequireControl(ctx, participant); err != nil {
		return decimal.Zero, err
	}

	mu := e.lockMarket(marketID)
	defer mu.Unlock()

	var payout decimal.Decimal
	err := e.store.Update(ctx, func(tx store.Tx) error {
		m, err := getMarket(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if !m.IsResolved() {
			return domain.ErrMarketNotResolved
		}

		stake, err := getStake(ctx, tx, marketID, participant)
		if err != nil {
			return err
		}
		if stake.Claimed {
			return domain.ErrAlreadyClaimed
		}
		if !stake.Won(m) {
			return domain.ErrNotAWinner
		}

		prizePool, _ := domain.ResolutionFee(m.TotalPool(), e.params.PlatformFeePercent)
		payout, err = domain.ProportionalPayout(stake.Amount, prizePool, m.PoolFor(*m.Winner))
		if err != nil {
			return err
		}

		stake.Claimed = true
		return putStake(ctx, tx, stake)
	})
	if err != nil {
		return decimal.Zero, err
	}

	if err := e.ledger.Transfer(ctx, ledger.EscrowAccount, participant, payout); err != nil {
		return decimal.Zero, fmt.Errorf("engine.Claim: pay participant: %w", err)
	}

	e.emit.Emit(EventPayoutClaimed, map[string]any{
		"market_id":   marketID,
		"participant": participant,
		"payout":      payout,
	})
	return payout, nil
}

// WithdrawTreasury moves part of the accumulated treasury balance to the
// administrator's account. Admin only.
func (e *Engine) WithdrawTreasury(ctx context.Context, amount decimal.Decimal) error {
	admin, err := e.requireAdmin(ctx)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err = e.store.Update(ctx, func(tx store.Tx) error {
		treasury, err := getAmount(ctx, tx, keyTreasury)
		if err != nil {
			return err
		}
		if amount.GreaterThan(treasury) {
			return domain.ErrInsufficientTreasury
		}
		return putAmount(ctx, tx, keyTreasury, treasury.Sub(amount))
	})
	if err != nil {
		return err
	}

	if err := e.ledger.Transfer(ctx, ledger.EscrowAccount, admin, amount); err != nil {
		return fmt.Errorf("engine.WithdrawTreasury: pay admin: %w", err)
	}

	e.emit.Emit(EventTreasuryWithdrawn, map[string]any{
		"admin":  admin,
		"amount": amount,
	})
	return nil
}
