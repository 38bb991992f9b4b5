// Package engine implements the escrow core: market registry, stake ledger,
// treasury and burn accounting, and the resolution/payout state machine. All
// money movement goes through the ledger collaborator and every state change
// is committed through the store's atomic Update, so a failed precondition
// never leaves records partially written.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/outcomely/timelock/internal/domain"
	"github.com/outcomely/timelock/internal/platform/authz"
	"github.com/outcomely/timelock/internal/platform/clock"
	"github.com/outcomely/timelock/internal/platform/ledger"
	"github.com/outcomely/timelock/internal/store"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Collaborators
// ──────────────────────────────────────────────────────────────────────────────

// Emitter receives engine events after the corresponding state change has
// committed. Implementations must not block; the production implementation
// fans events out to websocket subscribers.
type Emitter interface {
	Emit(event string, payload any)
}

// Event names, published with a JSON-serialisable payload.
const (
	EventInitialized       = "initialized"
	EventMarketCreated     = "market_created"
	EventStakePlaced       = "stake_placed"
	EventMarketResolved    = "market_resolved"
	EventMarketCancelled   = "market_cancelled"
	EventPayoutClaimed     = "payout_claimed"
	EventTreasuryWithdrawn = "treasury_withdrawn"
)

// NopEmitter discards all events.
type NopEmitter struct{}

// Emit does nothing.
func (NopEmitter) Emit(string, any) {}

// ──────────────────────────────────────────────────────────────────────────────
// Parameters
// ──────────────────────────────────────────────────────────────────────────────

// Params are the engine's economic parameters. Amounts are integer base units
// of the settlement asset.
type Params struct {
	CreationFee          decimal.Decimal
	MinStake             decimal.Decimal
	PlatformFeePercent   int64
	TreasurySplitPercent int64
	MinLockWindow        time.Duration
	CancelWindow         time.Duration
}

// DefaultParams returns the production defaults: 50-unit creation fee,
// 100-unit minimum stake (7 decimals), 5% platform fee, 70/30 treasury/burn
// split, one-hour lock and cancel windows.
func DefaultParams() Params {
	return Params{
		CreationFee:          decimal.NewFromInt(500_000_000),
		MinStake:             decimal.NewFromInt(1_000_000_000),
		PlatformFeePercent:   5,
		TreasurySplitPercent: 70,
		MinLockWindow:        time.Hour,
		CancelWindow:         time.Hour,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Engine
// ──────────────────────────────────────────────────────────────────────────────

// Engine drives every market operation. It is safe for concurrent use: writes
// to one market are serialized by a per-market mutex, and the id counter and
// treasury scalars by a global one.
type Engine struct {
	store  store.Store
	ledger ledger.Ledger
	clock  clock.Clock
	guard  authz.Authorizer
	emit   Emitter
	params Params

	mu sync.Mutex // serializes create, withdraw, and treasury updates

	lockMu      sync.Mutex
	marketLocks map[uint64]*sync.Mutex
}

// New constructs an engine. A nil emitter is replaced with NopEmitter.
func New(st store.Store, lg ledger.Ledger, clk clock.Clock, guard authz.Authorizer, emit Emitter, params Params) *Engine {
	if emit == nil {
		emit = NopEmitter{}
	}
	return &Engine{
		store:       st,
		ledger:      lg,
		clock:       clk,
		guard:       guard,
		emit:        emit,
		params:      params,
		marketLocks: make(map[uint64]*sync.Mutex),
	}
}

// lockMarket acquires the mutex for one market, creating it on first use.
// Market locks are never released back to the map; the set of markets grows
// slowly and each entry is a single mutex.
func (e *Engine) lockMarket(id uint64) *sync.Mutex {
	e.lockMu.Lock()
	mu, ok := e.marketLocks[id]
	if !ok {
		mu = &sync.Mutex{}
		e.marketLocks[id] = mu
	}
	e.lockMu.Unlock()
	mu.Lock()
	return mu
}

// ──────────────────────────────────────────────────────────────────────────────
// Storage keys
// ──────────────────────────────────────────────────────────────────────────────

const (
	keyAdmin       = "admin"
	keyMarketCount = "market_count"
	keyTreasury    = "treasury"
	keyTotalBurned = "total_burned"
)

func keyMarket(id uint64) string {
	return fmt.Sprintf("market:%d", id)
}

func keyStake(marketID uint64, participant domain.Address) string {
	return fmt.Sprintf("stake:%d:%s", marketID, participant)
}

func keyStakers(marketID uint64) string {
	return fmt.Sprintf("market_stakers:%d", marketID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Record access helpers — usable both inside and outside Update
// ──────────────────────────────────────────────────────────────────────────────

func getMarket(ctx context.Context, tx store.Tx, id uint64) (*domain.Market, error) {
	data, ok, err := tx.Get(ctx, keyMarket(id))
	if err != nil {
		return nil, fmt.Errorf("engine: load market %d: %w", id, err)
	}
	if !ok {
		return nil, domain.ErrMarketNotFound
	}
	return domain.DecodeMarket(data)
}

func putMarket(ctx context.Context, tx store.Tx, m *domain.Market) error {
	data, err := domain.EncodeMarket(m)
	if err != nil {
		return err
	}
	return tx.Set(ctx, keyMarket(m.ID), data)
}

func getStake(ctx context.Context, tx store.Tx, marketID uint64, participant domain.Address) (*domain.Stake, error) {
	data, ok, err := tx.Get(ctx, keyStake(marketID, participant))
	if err != nil {
		return nil, fmt.Errorf("engine: load stake %d/%s: %w", marketID, participant, err)
	}
	if !ok {
		return nil, domain.ErrStakeNotFound
	}
	return domain.DecodeStake(data)
}

func putStake(ctx context.Context, tx store.Tx, s *domain.Stake) error {
	data, err := domain.EncodeStake(s)
	if err != nil {
		return err
	}
	return tx.Set(ctx, keyStake(s.MarketID, s.Participant), data)
}

// getStakers returns the ordered list of participants in a market.
func getStakers(ctx context.Context, tx store.Tx, marketID uint64) ([]domain.Address, error) {
	data, ok, err := tx.Get(ctx, keyStakers(marketID))
	if err != nil {
		return nil, fmt.Errorf("engine: load stakers %d: %w", marketID, err)
	}
	if !ok {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("engine: decode stakers %d: %w", marketID, err)
	}
	out := make([]domain.Address, len(raw))
	for i, s := range raw {
		out[i] = domain.Address(s)
	}
	return out, nil
}

func putStakers(ctx context.Context, tx store.Tx, marketID uint64, stakers []domain.Address) error {
	raw := make([]string, len(stakers))
	for i, a := range stakers {
		raw[i] = string(a)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("engine: encode stakers %d: %w", marketID, err)
	}
	return tx.Set(ctx, keyStakers(marketID), data)
}

// Scalars are stored as plain decimal strings.

func getAmount(ctx context.Context, tx store.Tx, key string) (decimal.Decimal, error) {
	data, ok, err := tx.Get(ctx, key)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine: load %s: %w", key, err)
	}
	if !ok {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine: decode %s: %w", key, err)
	}
	return d, nil
}

func putAmount(ctx context.Context, tx store.Tx, key string, d decimal.Decimal) error {
	return tx.Set(ctx, key, []byte(d.String()))
}

func getCount(ctx context.Context, tx store.Tx) (uint64, error) {
	data, ok, err := tx.Get(ctx, keyMarketCount)
	if err != nil {
		return 0, fmt.Errorf("engine: load market count: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("engine: decode market count: %w", err)
	}
	return n, nil
}

func putCount(ctx context.Context, tx store.Tx, n uint64) error {
	return tx.Set(ctx, keyMarketCount, []byte(strconv.FormatUint(n, 10)))
}

// admin returns the stored administrator address, or ErrNotInitialized.
func (e *Engine) admin(ctx context.Context) (domain.Address, error) {
	data, ok, err := e.store.Get(ctx, keyAdmin)
	if err != nil {
		return "", fmt.Errorf("engine: load admin: %w", err)
	}
	if !ok {
		return "", domain.ErrNotInitialized
	}
	return domain.Address(data), nil
}

// requireAdmin loads the administrator and checks the caller controls it.
func (e *Engine) requireAdmin(ctx context.Context) (domain.Address, error) {
	admin, err := e.admin(ctx)
	if err != nil {
		return "", err
	}
	if err := e.guard.RequireControl(ctx, admin); err != nil {
		return "", err
	}
	return admin, nil
}
