package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/outcomely/timelock/internal/domain"
	"github.com/outcomely/timelock/internal/platform/ledger"
	"github.com/outcomely/timelock/internal/store"
	"github.com/shopspring/decimal"
)

// Initialize sets the administrator account. It may be called exactly once;
// a second call fails with ErrAlreadyInitialized and changes nothing.
func (e *Engine) Initialize(ctx context.Context, admin domain.Address) error {
	if admin == "" {
		return domain.ErrUnauthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.store.Update(ctx, func(tx store.Tx) error {
		ok, err := tx.Has(ctx, keyAdmin)
		if err != nil {
			return fmt.Errorf("engine.Initialize: %w", err)
		}
		if ok {
			return domain.ErrAlreadyInitialized
		}
		if err := tx.Set(ctx, keyAdmin, []byte(admin)); err != nil {
			return fmt.Errorf("engine.Initialize: %w", err)
		}
		if err := putCount(ctx, tx, 0); err != nil {
			return fmt.Errorf("engine.Initialize: %w", err)
		}
		if err := putAmount(ctx, tx, keyTreasury, decimal.Zero); err != nil {
			return fmt.Errorf("engine.Initialize: %w", err)
		}
		if err := putAmount(ctx, tx, keyTotalBurned, decimal.Zero); err != nil {
			return fmt.Errorf("engine.Initialize: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.emit.Emit(EventInitialized, map[string]any{"admin": admin})
	return nil
}

// CreateMarket opens a new market. The creator pays the creation fee plus an
// initial stake of their choosing (at least the minimum stake) on the chosen
// side, and becomes the market's first participant. Returns the new market id.
func (e *Engine) CreateMarket(
	ctx context.Context,
	creator domain.Address,
	question string,
	category domain.Category,
	side domain.Side,
	amount decimal.Decimal,
	unlockTime time.Time,
) (uint64, error) {
	if err := e.guard.RequireControl(ctx, creator); err != nil {
		return 0, err
	}
	if err := domain.ValidateQuestion(question); err != nil {
		return 0, err
	}
	if category == "" {
		category = domain.CategoryOther
	}
	if !category.IsValid() {
		return 0, domain.ErrInvalidCategory
	}
	if !side.IsValid() {
		return 0, domain.ErrInvalidSide
	}
	if amount.LessThan(e.params.MinStake) {
		return 0, domain.ErrStakeTooSmall
	}

	// Strict bound: unlock must lie beyond now + MinLockWindow, not at it.
	now := e.clock.Now()
	if !unlockTime.After(now.Add(e.params.MinLockWindow)) {
		return 0, domain.ErrUnlockTooSoon
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.admin(ctx); err != nil {
		return 0, err
	}

	// Charge fee + initial stake into escrow before touching any records.
	total := e.params.CreationFee.Add(amount)
	if err := e.ledger.Transfer(ctx, creator, ledger.EscrowAccount, total); err != nil {
		return 0, fmt.Errorf("engine.CreateMarket: charge creator: %w", err)
	}

	toTreasury, toBurn := domain.SplitCreationFee(e.params.CreationFee, e.params.TreasurySplitPercent)

	var id uint64
	err := e.store.Update(ctx, func(tx store.Tx) error {
		count, err := getCount(ctx, tx)
		if err != nil {
			return err
		}
		id = count + 1

		market := &domain.Market{
			ID:           id,
			Creator:      creator,
			Question:     question,
			UnlockTime:   unlockTime,
			CreatedAt:    now,
			YesPool:      decimal.Zero,
			NoPool:       decimal.Zero,
			Status:       domain.StatusOpen,
			Category:     category,
			Participants: 1,
		}
		market.AddToPool(side, amount)
		if err := putMarket(ctx, tx, market); err != nil {
			return err
		}

		stake := &domain.Stake{
			Participant: creator,
			MarketID:    id,
			Side:        side,
			Amount:      amount,
			StakedAt:    now,
		}
		if err := putStake(ctx, tx, stake); err != nil {
			return err
		}
		if err := putStakers(ctx, tx, id, []domain.Address{creator}); err != nil {
			return err
		}
		if err := putCount(ctx, tx, id); err != nil {
			return err
		}

		treasury, err := getAmount(ctx, tx, keyTreasury)
		if err != nil {
			return err
		}
		if err := putAmount(ctx, tx, keyTreasury, treasury.Add(toTreasury)); err != nil {
			return err
		}
		burned, err := getAmount(ctx, tx, keyTotalBurned)
		if err != nil {
			return err
		}
		return putAmount(ctx, tx, keyTotalBurned, burned.Add(toBurn))
	})
	if err != nil {
		// The records never committed; give the creator their payment back.
		if rerr := e.ledger.Transfer(ctx, ledger.EscrowAccount, creator, total); rerr != nil {
			return 0, fmt.Errorf("engine.CreateMarket: %w (refund also failed: %v)", err, rerr)
		}
		return 0, err
	}

	// The burn share leaves escrow for good. If the transfer is rejected the
	// market is already live, so reconcile the counter instead of failing:
	// the share stays in escrow and total_burned keeps matching the burn
	// account.
	if err := e.ledger.Transfer(ctx, ledger.EscrowAccount, ledger.BurnAccount, toBurn); err != nil {
		slog.Warn("burn transfer rejected; reconciling total_burned",
			"market_id", id, "amount", toBurn, "err", err)
		rerr := e.store.Update(ctx, func(tx store.Tx) error {
			burned, berr := getAmount(ctx, tx, keyTotalBurned)
			if berr != nil {
				return berr
			}
			return putAmount(ctx, tx, keyTotalBurned, burned.Sub(toBurn))
		})
		if rerr != nil {
			return id, fmt.Errorf("engine.CreateMarket: burn transfer: %w (reconcile also failed: %v)", err, rerr)
		}
	}

	e.emit.Emit(EventMarketCreated, map[string]any{
		"market_id":   id,
		"creator":     creator,
		"question":    question,
		"category":    category,
		"side":        side,
		"amount":      amount,
		"unlock_time": unlockTime.Unix(),
	})
	return id, nil
}

// Stake places a participant's position on one side of an open market. Each
// participant may stake at most once per market; the amount moves into escrow
// before the pool totals are updated.
func (e *Engine) Stake(
	ctx context.Context,
	participant domain.Address,
	marketID uint64,
	side domain.Side,
	amount decimal.Decimal,
) error {
	if err := e.guard.RequireControl(ctx, participant); err != nil {
		return err
	}
	if !side.IsValid() {
		return domain.ErrInvalidSide
	}
	if amount.LessThan(e.params.MinStake) {
		return domain.ErrStakeTooSmall
	}

	mu := e.lockMarket(marketID)
	defer mu.Unlock()

	market, err := getMarket(ctx, e.store, marketID)
	if err != nil {
		return err
	}
	// The duplicate check comes before the status and timing gates, so a
	// participant who already holds a position is told so even after the
	// market has closed.
	exists, err := e.store.Has(ctx, keyStake(marketID, participant))
	if err != nil {
		return fmt.Errorf("engine.Stake: %w", err)
	}
	if exists {
		return domain.ErrAlreadyStaked
	}
	if !market.IsOpen() {
		return domain.ErrMarketNotOpen
	}
	now := e.clock.Now()
	if market.Expired(now) {
		return domain.ErrMarketExpired
	}

	if err := e.ledger.Transfer(ctx, participant, ledger.EscrowAccount, amount); err != nil {
		return fmt.Errorf("engine.Stake: charge participant: %w", err)
	}

	err = e.store.Update(ctx, func(tx store.Tx) error {
		m, err := getMarket(ctx, tx, marketID)
		if err != nil {
			return err
		}
		m.AddToPool(side, amount)
		m.Participants++
		if err := putMarket(ctx, tx, m); err != nil {
			return err
		}

		stake := &domain.Stake{
			Participant: participant,
			MarketID:    marketID,
			Side:        side,
			Amount:      amount,
			StakedAt:    now,
		}
		if err := putStake(ctx, tx, stake); err != nil {
			return err
		}

		stakers, err := getStakers(ctx, tx, marketID)
		if err != nil {
			return err
		}
		return putStakers(ctx, tx, marketID, append(stakers, participant))
	})
	if err != nil {
		if rerr := e.ledger.Transfer(ctx, ledger.EscrowAccount, participant, amount); rerr != nil {
			return fmt.Errorf("engine.Stake: %w (refund also failed: %v)", err, rerr)
		}
		return err
	}

	e.emit.Emit(EventStakePlaced, map[string]any{
		"market_id":   marketID,
		"participant": participant,
		"side":        side,
		"amount":      amount,
	})
	return nil
}
