package engine

import (
	"context"

	"github.com/outcomely/timelock/internal/domain"
	"github.com/shopspring/decimal"
)

// GetMarket returns one market by id.
func (e *Engine) GetMarket(ctx context.Context, id uint64) (*domain.Market, error) {
	return getMarket(ctx, e.store, id)
}

// GetStake returns a participant's stake in a market.
func (e *Engine) GetStake(ctx context.Context, marketID uint64, participant domain.Address) (*domain.Stake, error) {
	return getStake(ctx, e.store, marketID, participant)
}

// MarketCount returns the number of markets ever created. Ids run 1..count
// and are never reused, so this doubles as the highest id.
func (e *Engine) MarketCount(ctx context.Context) (uint64, error) {
	return getCount(ctx, e.store)
}

// ListMarkets returns all markets in creation order.
func (e *Engine) ListMarkets(ctx context.Context) ([]*domain.Market, error) {
	count, err := getCount(ctx, e.store)
	if err != nil {
		return nil, err
	}
	markets := make([]*domain.Market, 0, count)
	for id := uint64(1); id <= count; id++ {
		m, err := getMarket(ctx, e.store, id)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, nil
}

// Treasury returns the withdrawable treasury balance.
func (e *Engine) Treasury(ctx context.Context) (decimal.Decimal, error) {
	return getAmount(ctx, e.store, keyTreasury)
}

// TotalBurned returns the cumulative amount sent to the burn account.
func (e *Engine) TotalBurned(ctx context.Context) (decimal.Decimal, error) {
	return getAmount(ctx, e.store, keyTotalBurned)
}

// Admin returns the administrator account, or ErrNotInitialized.
func (e *Engine) Admin(ctx context.Context) (domain.Address, error) {
	return e.admin(ctx)
}

// Stats aggregates market counts, total volume and the treasury scalars.
func (e *Engine) Stats(ctx context.Context) (*domain.Stats, error) {
	markets, err := e.ListMarkets(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{
		TotalMarkets: uint64(len(markets)),
		TotalVolume:  decimal.Zero,
	}
	for _, m := range markets {
		stats.TotalVolume = stats.TotalVolume.Add(m.TotalPool())
		switch m.Status {
		case domain.StatusResolved:
			stats.ResolvedMarkets++
		case domain.StatusCancelled:
			stats.CancelledMarkets++
		default:
			stats.ActiveMarkets++
		}
	}

	if stats.TreasuryBalance, err = e.Treasury(ctx); err != nil {
		return nil, err
	}
	if stats.TotalBurned, err = e.TotalBurned(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// Dust returns the portion of a resolved market's prize pool that payout
// truncation leaves undistributed. It stays in escrow; it is never swept to
// the treasury or burned.
func (e *Engine) Dust(ctx context.Context, marketID uint64) (decimal.Decimal, error) {
	m, err := getMarket(ctx, e.store, marketID)
	if err != nil {
		return decimal.Zero, err
	}
	if !m.IsResolved() {
		return decimal.Zero, domain.ErrMarketNotResolved
	}

	stakers, err := getStakers(ctx, e.store, marketID)
	if err != nil {
		return decimal.Zero, err
	}
	var winning []decimal.Decimal
	for _, p := range stakers {
		s, err := getStake(ctx, e.store, marketID, p)
		if err != nil {
			return decimal.Zero, err
		}
		if s.Won(m) {
			winning = append(winning, s.Amount)
		}
	}
	if len(winning) == 0 {
		// No winning stakes: nothing can ever be claimed, the whole prize
		// pool is stranded.
		prizePool, _ := domain.ResolutionFee(m.TotalPool(), e.params.PlatformFeePercent)
		return prizePool, nil
	}

	prizePool, _ := domain.ResolutionFee(m.TotalPool(), e.params.PlatformFeePercent)
	return domain.Dust(prizePool, m.PoolFor(*m.Winner), winning)
}
