package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/outcomely/timelock/internal/domain"
	"github.com/outcomely/timelock/internal/engine"
	"github.com/outcomely/timelock/internal/platform/authz"
	"github.com/outcomely/timelock/internal/platform/clock"
	"github.com/outcomely/timelock/internal/platform/ledger"
	"github.com/outcomely/timelock/internal/store"
	"github.com/shopspring/decimal"
)

// Test parameters use small integers so the expected accounting is easy to
// follow by hand: 50-unit creation fee (70/30 split → 35 treasury / 15 burn),
// 100-unit minimum stake, 5% platform fee, one-hour lock and cancel windows.

const testAdmin = domain.Address("admin-1")

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func testParams() engine.Params {
	return engine.Params{
		CreationFee:          dec(50),
		MinStake:             dec(100),
		PlatformFeePercent:   5,
		TreasurySplitPercent: 70,
		MinLockWindow:        time.Hour,
		CancelWindow:         time.Hour,
	}
}

// as returns a context whose caller has proven control of who.
func as(who domain.Address) context.Context {
	return authz.WithIdentity(context.Background(), who)
}

type env struct {
	t   *testing.T
	eng *engine.Engine
	lgr *ledger.Memory
	clk *clock.Fixed
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clk := &clock.Fixed{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	lgr := ledger.NewMemory()
	eng := engine.New(store.NewMemory(), lgr, clk, authz.ContextGuard{}, nil, testParams())
	if err := eng.Initialize(context.Background(), testAdmin); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return &env{t: t, eng: eng, lgr: lgr, clk: clk}
}

func (e *env) fund(who domain.Address, n int64) {
	e.lgr.Mint(who, dec(n))
}

func (e *env) balance(who domain.Address) decimal.Decimal {
	bal, err := e.lgr.Balance(context.Background(), who)
	if err != nil {
		e.t.Fatalf("balance %s: %v", who, err)
	}
	return bal
}

// create opens a market with a two-hour unlock window and returns its id.
func (e *env) create(creator domain.Address, side domain.Side, amount int64) uint64 {
	e.t.Helper()
	id, err := e.eng.CreateMarket(as(creator), creator,
		"Will the index close higher on Friday?", domain.CategoryFinance,
		side, dec(amount), e.clk.T.Add(2*time.Hour))
	if err != nil {
		e.t.Fatalf("create market: %v", err)
	}
	return id
}

// ──────────────────────────────────────────────────────────────────────────────
// Initialization
// ──────────────────────────────────────────────────────────────────────────────

func TestInitializeOnce(t *testing.T) {
	e := newEnv(t)

	err := e.eng.Initialize(context.Background(), "someone-else")
	if !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Errorf("second initialize err = %v, want ErrAlreadyInitialized", err)
	}

	admin, err := e.eng.Admin(context.Background())
	if err != nil || admin != testAdmin {
		t.Errorf("admin = %q, %v; want %q", admin, err, testAdmin)
	}
}

func TestInitializeEmptyAdmin(t *testing.T) {
	eng := engine.New(store.NewMemory(), ledger.NewMemory(),
		&clock.Fixed{T: time.Now()}, authz.ContextGuard{}, nil, testParams())
	if err := eng.Initialize(context.Background(), ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("empty admin err = %v, want ErrUnauthorized", err)
	}
}

func TestOperationsBeforeInitialize(t *testing.T) {
	clk := &clock.Fixed{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	lgr := ledger.NewMemory()
	lgr.Mint("alice", dec(10_000))
	eng := engine.New(store.NewMemory(), lgr, clk, authz.ContextGuard{}, nil, testParams())

	_, err := eng.CreateMarket(as("alice"), "alice",
		"Will anything at all ever happen here?", domain.CategoryOther,
		domain.SideYes, dec(100), clk.T.Add(2*time.Hour))
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("create before init err = %v, want ErrNotInitialized", err)
	}

	if err = eng.Resolve(as(testAdmin), 1, domain.SideYes); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("resolve before init err = %v, want ErrNotInitialized", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

// TestCreateMarket walks the full creation accounting:
//
//	alice pays 50 (fee) + 100 (stake) = 150 into escrow
//	fee splits 35 → treasury counter, 15 → burn counter
//	the burn share leaves escrow immediately, so escrow holds 135
func TestCreateMarket(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)

	id := e.create("alice", domain.SideYes, 100)
	if id != 1 {
		t.Errorf("first market id = %d, want 1", id)
	}

	m, err := e.eng.GetMarket(context.Background(), id)
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if m.Creator != "alice" || m.Status != domain.StatusOpen {
		t.Errorf("creator %q status %q", m.Creator, m.Status)
	}
	if !m.YesPool.Equal(dec(100)) || !m.NoPool.IsZero() {
		t.Errorf("pools yes=%s no=%s, want 100/0", m.YesPool, m.NoPool)
	}
	if m.Participants != 1 {
		t.Errorf("participants = %d, want 1", m.Participants)
	}
	if !m.CreatedAt.Equal(e.clk.T) {
		t.Errorf("created_at = %v, want %v", m.CreatedAt, e.clk.T)
	}

	s, err := e.eng.GetStake(context.Background(), id, "alice")
	if err != nil {
		t.Fatalf("get stake: %v", err)
	}
	if s.Side != domain.SideYes || !s.Amount.Equal(dec(100)) || s.Claimed {
		t.Errorf("creator stake = %+v", s)
	}

	treasury, _ := e.eng.Treasury(context.Background())
	if !treasury.Equal(dec(35)) {
		t.Errorf("treasury = %s, want 35", treasury)
	}
	burned, _ := e.eng.TotalBurned(context.Background())
	if !burned.Equal(dec(15)) {
		t.Errorf("total burned = %s, want 15", burned)
	}

	if got := e.balance("alice"); !got.Equal(dec(9_850)) {
		t.Errorf("alice balance = %s, want 9850", got)
	}
	if got := e.balance(ledger.EscrowAccount); !got.Equal(dec(135)) {
		t.Errorf("escrow balance = %s, want 135", got)
	}
	if got := e.balance(ledger.BurnAccount); !got.Equal(dec(15)) {
		t.Errorf("burn balance = %s, want 15", got)
	}
}

func TestCreateMarketValidation(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	unlock := e.clk.T.Add(2 * time.Hour)

	tests := []struct {
		name     string
		question string
		category domain.Category
		side     domain.Side
		amount   int64
		unlock   time.Time
		wantErr  error
	}{
		{"short question", "too short", domain.CategoryOther, domain.SideYes, 100, unlock, domain.ErrQuestionLength},
		{"bad category", "Will the question survive review?", "memes", domain.SideYes, 100, unlock, domain.ErrInvalidCategory},
		{"bad side", "Will the question survive review?", domain.CategoryOther, "MAYBE", 100, unlock, domain.ErrInvalidSide},
		{"stake below minimum", "Will the question survive review?", domain.CategoryOther, domain.SideYes, 99, unlock, domain.ErrStakeTooSmall},
		{"unlock inside lock window", "Will the question survive review?", domain.CategoryOther, domain.SideYes, 100, e.clk.T.Add(59 * time.Minute), domain.ErrUnlockTooSoon},
		{"unlock exactly at lock window", "Will the question survive review?", domain.CategoryOther, domain.SideYes, 100, e.clk.T.Add(time.Hour), domain.ErrUnlockTooSoon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.eng.CreateMarket(as("alice"), "alice",
				tt.question, tt.category, tt.side, dec(tt.amount), tt.unlock)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// A rejected creation must not have charged the creator or counted a market.
	if got := e.balance("alice"); !got.Equal(dec(10_000)) {
		t.Errorf("alice balance = %s, want 10000 untouched", got)
	}
	count, _ := e.eng.MarketCount(context.Background())
	if count != 0 {
		t.Errorf("market count = %d, want 0", count)
	}
}

// The lock-window bound is strict: unlock must lie beyond now + window, and
// one second past it is the earliest accepted value.
func TestCreateMarketUnlockJustPastWindow(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)

	id, err := e.eng.CreateMarket(as("alice"), "alice",
		"Will the earliest legal unlock be accepted?", domain.CategoryOther,
		domain.SideYes, dec(100), e.clk.T.Add(time.Hour+time.Second))
	if err != nil {
		t.Fatalf("create at window + 1s: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
}

func TestCreateMarketInsufficientBalance(t *testing.T) {
	e := newEnv(t)
	e.fund("pauper", 149) // one unit short of fee + minimum stake

	_, err := e.eng.CreateMarket(as("pauper"), "pauper",
		"Will the pauper afford the entry fee?", domain.CategoryOther,
		domain.SideYes, dec(100), e.clk.T.Add(2*time.Hour))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := e.balance("pauper"); !got.Equal(dec(149)) {
		t.Errorf("pauper balance = %s, want 149 untouched", got)
	}
}

func TestCreateMarketDefaultCategory(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)

	id, err := e.eng.CreateMarket(as("alice"), "alice",
		"Will the empty category default sensibly?", "",
		domain.SideNo, dec(100), e.clk.T.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m, _ := e.eng.GetMarket(context.Background(), id)
	if m.Category != domain.CategoryOther {
		t.Errorf("category = %q, want %q", m.Category, domain.CategoryOther)
	}
}

func TestCreateMarketRequiresControl(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)

	_, err := e.eng.CreateMarket(as("mallory"), "alice",
		"Will mallory spend alice's balance today?", domain.CategoryOther,
		domain.SideYes, dec(100), e.clk.T.Add(2*time.Hour))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

// burnFailLedger rejects transfers to the burn account and passes everything
// else through to the in-memory ledger.
type burnFailLedger struct{ *ledger.Memory }

func (l *burnFailLedger) Transfer(ctx context.Context, from, to domain.Address, amount decimal.Decimal) error {
	if to == ledger.BurnAccount {
		return domain.ErrAccountNotFound
	}
	return l.Memory.Transfer(ctx, from, to, amount)
}

// A rejected burn transfer must not fail the creation: the market stays live,
// the burn share stays in escrow, and total_burned is wound back so the
// counter keeps matching the burn account.
func TestCreateMarketBurnTransferFailure(t *testing.T) {
	clk := &clock.Fixed{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	lgr := ledger.NewMemory()
	lgr.Mint("alice", dec(10_000))
	eng := engine.New(store.NewMemory(), &burnFailLedger{lgr}, clk, authz.ContextGuard{}, nil, testParams())
	if err := eng.Initialize(context.Background(), testAdmin); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	id, err := eng.CreateMarket(as("alice"), "alice",
		"Will the market survive a rejected burn?", domain.CategoryOther,
		domain.SideYes, dec(100), clk.T.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m, err := eng.GetMarket(context.Background(), id)
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if !m.IsOpen() {
		t.Errorf("status = %q, want open", m.Status)
	}

	// Treasury keeps its split; the burn counter is back to zero.
	treasury, _ := eng.Treasury(context.Background())
	if !treasury.Equal(dec(35)) {
		t.Errorf("treasury = %s, want 35", treasury)
	}
	burned, _ := eng.TotalBurned(context.Background())
	if !burned.IsZero() {
		t.Errorf("total burned = %s, want 0", burned)
	}

	// The 15-unit burn share never left escrow, so escrow holds the full 150.
	escrow, _ := lgr.Balance(context.Background(), ledger.EscrowAccount)
	if !escrow.Equal(dec(150)) {
		t.Errorf("escrow balance = %s, want 150", escrow)
	}
	burnBal, _ := lgr.Balance(context.Background(), ledger.BurnAccount)
	if !burnBal.IsZero() {
		t.Errorf("burn balance = %s, want 0", burnBal)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Stake
// ──────────────────────────────────────────────────────────────────────────────

func TestStake(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	e.fund("bob", 10_000)
	id := e.create("alice", domain.SideYes, 100)

	if err := e.eng.Stake(as("bob"), "bob", id, domain.SideNo, dec(200)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	m, _ := e.eng.GetMarket(context.Background(), id)
	if !m.YesPool.Equal(dec(100)) || !m.NoPool.Equal(dec(200)) {
		t.Errorf("pools yes=%s no=%s, want 100/200", m.YesPool, m.NoPool)
	}
	if m.Participants != 2 {
		t.Errorf("participants = %d, want 2", m.Participants)
	}
	if got := e.balance("bob"); !got.Equal(dec(9_800)) {
		t.Errorf("bob balance = %s, want 9800", got)
	}

	// One stake per participant per market.
	err := e.eng.Stake(as("bob"), "bob", id, domain.SideYes, dec(100))
	if !errors.Is(err, domain.ErrAlreadyStaked) {
		t.Errorf("second stake err = %v, want ErrAlreadyStaked", err)
	}
	if got := e.balance("bob"); !got.Equal(dec(9_800)) {
		t.Errorf("bob balance after rejected stake = %s, want 9800", got)
	}
}

func TestStakeErrors(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	e.fund("bob", 10_000)
	id := e.create("alice", domain.SideYes, 100)

	if err := e.eng.Stake(as("bob"), "bob", 999, domain.SideNo, dec(100)); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("unknown market err = %v, want ErrMarketNotFound", err)
	}
	if err := e.eng.Stake(as("bob"), "bob", id, "MAYBE", dec(100)); !errors.Is(err, domain.ErrInvalidSide) {
		t.Errorf("bad side err = %v, want ErrInvalidSide", err)
	}
	if err := e.eng.Stake(as("bob"), "bob", id, domain.SideNo, dec(99)); !errors.Is(err, domain.ErrStakeTooSmall) {
		t.Errorf("small stake err = %v, want ErrStakeTooSmall", err)
	}

	// Staking closes at exactly the unlock time.
	e.clk.Advance(2 * time.Hour)
	if err := e.eng.Stake(as("bob"), "bob", id, domain.SideNo, dec(100)); !errors.Is(err, domain.ErrMarketExpired) {
		t.Errorf("expired stake err = %v, want ErrMarketExpired", err)
	}
}

// A participant who already holds a position is told so regardless of the
// market's status or timing: the duplicate check outranks the open/expired
// gates.
func TestStakeDuplicateReportedOnClosedMarket(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	e.fund("bob", 10_000)
	id := e.create("alice", domain.SideYes, 100)

	e.clk.Advance(2 * time.Hour)
	if err := e.eng.Stake(as("alice"), "alice", id, domain.SideNo, dec(100)); !errors.Is(err, domain.ErrAlreadyStaked) {
		t.Errorf("creator restake after expiry err = %v, want ErrAlreadyStaked", err)
	}

	if err := e.eng.Resolve(as(testAdmin), id, domain.SideYes); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := e.eng.Stake(as("alice"), "alice", id, domain.SideNo, dec(100)); !errors.Is(err, domain.ErrAlreadyStaked) {
		t.Errorf("creator restake after resolve err = %v, want ErrAlreadyStaked", err)
	}
	// A newcomer on the same market is still turned away by the status gate.
	if err := e.eng.Stake(as("bob"), "bob", id, domain.SideNo, dec(100)); !errors.Is(err, domain.ErrMarketNotOpen) {
		t.Errorf("newcomer stake after resolve err = %v, want ErrMarketNotOpen", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Resolve + claim
// ──────────────────────────────────────────────────────────────────────────────

// TestResolveAndClaim walks the settlement accounting end to end:
//
//	yes_pool = 100 (alice), no_pool = 200 (bob), total = 300
//	resolve YES: platform fee = 15 → treasury 35 + 15 = 50; prize pool = 285
//	alice claims: floor(100 × 285 / 100) = 285
func TestResolveAndClaim(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	e.fund("bob", 10_000)
	id := e.create("alice", domain.SideYes, 100)
	if err := e.eng.Stake(as("bob"), "bob", id, domain.SideNo, dec(200)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	// Claims are not allowed before resolution.
	if _, err := e.eng.Claim(as("alice"), "alice", id); !errors.Is(err, domain.ErrMarketNotResolved) {
		t.Errorf("claim before resolve err = %v, want ErrMarketNotResolved", err)
	}

	e.clk.Advance(3 * time.Hour)
	if err := e.eng.Resolve(as(testAdmin), id, domain.SideYes); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	m, _ := e.eng.GetMarket(context.Background(), id)
	if !m.IsResolved() || m.Winner == nil || *m.Winner != domain.SideYes {
		t.Fatalf("market after resolve: status %q winner %v", m.Status, m.Winner)
	}
	treasury, _ := e.eng.Treasury(context.Background())
	if !treasury.Equal(dec(50)) {
		t.Errorf("treasury = %s, want 50", treasury)
	}

	// A resolved market cannot be resolved or cancelled again.
	if err := e.eng.Resolve(as(testAdmin), id, domain.SideNo); !errors.Is(err, domain.ErrMarketNotOpen) {
		t.Errorf("second resolve err = %v, want ErrMarketNotOpen", err)
	}
	if err := e.eng.Cancel(as(testAdmin), id); !errors.Is(err, domain.ErrMarketNotOpen) {
		t.Errorf("cancel after resolve err = %v, want ErrMarketNotOpen", err)
	}

	payout, err := e.eng.Claim(as("alice"), "alice", id)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !payout.Equal(dec(285)) {
		t.Errorf("payout = %s, want 285", payout)
	}
	if got := e.balance("alice"); !got.Equal(dec(10_135)) {
		t.Errorf("alice balance = %s, want 10135 (9850 + 285)", got)
	}

	// Second claim is rejected and pays nothing.
	if _, err = e.eng.Claim(as("alice"), "alice", id); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("second claim err = %v, want ErrAlreadyClaimed", err)
	}
	if got := e.balance("alice"); !got.Equal(dec(10_135)) {
		t.Errorf("alice balance after rejected claim = %s, want 10135", got)
	}

	// Losers cannot claim, and their stake stays unclaimed.
	if _, err = e.eng.Claim(as("bob"), "bob", id); !errors.Is(err, domain.ErrNotAWinner) {
		t.Errorf("loser claim err = %v, want ErrNotAWinner", err)
	}
	s, _ := e.eng.GetStake(context.Background(), id, "bob")
	if s.Claimed {
		t.Error("losing stake must stay unclaimed")
	}

	// What remains in escrow is exactly the treasury balance.
	if got := e.balance(ledger.EscrowAccount); !got.Equal(treasury) {
		t.Errorf("escrow = %s, want treasury %s", got, treasury)
	}
}

func TestResolveTooEarly(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	id := e.create("alice", domain.SideYes, 100)

	err := e.eng.Resolve(as(testAdmin), id, domain.SideYes)
	if !errors.Is(err, domain.ErrTooEarly) {
		t.Errorf("err = %v, want ErrTooEarly", err)
	}
	m, _ := e.eng.GetMarket(context.Background(), id)
	if !m.IsOpen() || m.Winner != nil {
		t.Errorf("market must stay open after early resolve: status %q winner %v", m.Status, m.Winner)
	}
}

func TestResolveRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	id := e.create("alice", domain.SideYes, 100)
	e.clk.Advance(3 * time.Hour)

	if err := e.eng.Resolve(as("alice"), id, domain.SideYes); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("non-admin resolve err = %v, want ErrUnauthorized", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Cancel
// ──────────────────────────────────────────────────────────────────────────────

// TestCancel verifies the full-refund path. The refund returns the creation
// fee as well as the stake, while the burned share has already left escrow, so
// the shortfall is covered by fees pooled from other markets — here a second
// market supplies that float.
func TestCancel(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	e.fund("bob", 10_000)
	id := e.create("alice", domain.SideYes, 100)
	e.create("bob", domain.SideNo, 300)

	if err := e.eng.Cancel(as(testAdmin), id); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	m, _ := e.eng.GetMarket(context.Background(), id)
	if m.Status != domain.StatusCancelled {
		t.Errorf("status = %q, want cancelled", m.Status)
	}
	// Full refund: 50 fee + 100 stake.
	if got := e.balance("alice"); !got.Equal(dec(10_000)) {
		t.Errorf("alice balance = %s, want 10000 (full refund)", got)
	}

	// Treasury and burn totals never decrease on cancellation.
	treasury, _ := e.eng.Treasury(context.Background())
	if !treasury.Equal(dec(70)) { // 35 per market
		t.Errorf("treasury = %s, want 70", treasury)
	}
	burned, _ := e.eng.TotalBurned(context.Background())
	if !burned.Equal(dec(30)) {
		t.Errorf("total burned = %s, want 30", burned)
	}

	// A cancelled market is terminal.
	if err := e.eng.Cancel(as(testAdmin), id); !errors.Is(err, domain.ErrMarketNotOpen) {
		t.Errorf("second cancel err = %v, want ErrMarketNotOpen", err)
	}
	if err := e.eng.Stake(as("bob"), "bob", id, domain.SideNo, dec(100)); !errors.Is(err, domain.ErrMarketNotOpen) {
		t.Errorf("stake after cancel err = %v, want ErrMarketNotOpen", err)
	}
}

func TestCancelWindowClosed(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	id := e.create("alice", domain.SideYes, 100)

	e.clk.Advance(61 * time.Minute)
	err := e.eng.Cancel(as(testAdmin), id)
	if !errors.Is(err, domain.ErrCancelWindowClosed) {
		t.Errorf("late cancel err = %v, want ErrCancelWindowClosed", err)
	}
}

func TestCancelBlockedBySecondParticipant(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	e.fund("bob", 10_000)
	id := e.create("alice", domain.SideYes, 100)
	if err := e.eng.Stake(as("bob"), "bob", id, domain.SideNo, dec(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	err := e.eng.Cancel(as(testAdmin), id)
	if !errors.Is(err, domain.ErrCancelWindowClosed) {
		t.Errorf("cancel with 2 participants err = %v, want ErrCancelWindowClosed", err)
	}
}

func TestCancelRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	id := e.create("alice", domain.SideYes, 100)

	if err := e.eng.Cancel(as("alice"), id); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("non-admin cancel err = %v, want ErrUnauthorized", err)
	}
}

// Market ids are never reused, even after a cancellation.
func TestMarketIDsMonotonic(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	e.fund("bob", 10_000)

	id1 := e.create("alice", domain.SideYes, 100)
	e.create("bob", domain.SideNo, 300) // float for the cancel refund
	if err := e.eng.Cancel(as(testAdmin), id1); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	id3 := e.create("alice", domain.SideYes, 100)
	if id3 != 3 {
		t.Errorf("post-cancel market id = %d, want 3", id3)
	}
	count, _ := e.eng.MarketCount(context.Background())
	if count != 3 {
		t.Errorf("market count = %d, want 3", count)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Treasury
// ──────────────────────────────────────────────────────────────────────────────

func TestWithdrawTreasury(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	e.create("alice", domain.SideYes, 100) // treasury 35

	if err := e.eng.WithdrawTreasury(as(testAdmin), dec(20)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	treasury, _ := e.eng.Treasury(context.Background())
	if !treasury.Equal(dec(15)) {
		t.Errorf("treasury = %s, want 15", treasury)
	}
	if got := e.balance(testAdmin); !got.Equal(dec(20)) {
		t.Errorf("admin balance = %s, want 20", got)
	}

	if err := e.eng.WithdrawTreasury(as(testAdmin), dec(16)); !errors.Is(err, domain.ErrInsufficientTreasury) {
		t.Errorf("over-withdraw err = %v, want ErrInsufficientTreasury", err)
	}
	if err := e.eng.WithdrawTreasury(as(testAdmin), dec(0)); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero withdraw err = %v, want ErrInvalidAmount", err)
	}
	if err := e.eng.WithdrawTreasury(as(testAdmin), dec(-5)); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("negative withdraw err = %v, want ErrInvalidAmount", err)
	}
	if err := e.eng.WithdrawTreasury(as("alice"), dec(1)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("non-admin withdraw err = %v, want ErrUnauthorized", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

func TestStats(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	e.fund("bob", 10_000)

	resolved := e.create("alice", domain.SideYes, 100)
	cancelled := e.create("bob", domain.SideNo, 300)
	e.create("alice", domain.SideYes, 200) // stays active

	if err := e.eng.Cancel(as(testAdmin), cancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	e.clk.Advance(3 * time.Hour)
	if err := e.eng.Resolve(as(testAdmin), resolved, domain.SideYes); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	stats, err := e.eng.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalMarkets != 3 || stats.ActiveMarkets != 1 ||
		stats.ResolvedMarkets != 1 || stats.CancelledMarkets != 1 {
		t.Errorf("counts = %d/%d/%d/%d, want 3/1/1/1",
			stats.TotalMarkets, stats.ActiveMarkets, stats.ResolvedMarkets, stats.CancelledMarkets)
	}
	// Volume sums every market's pools, cancelled included: 100 + 300 + 200.
	if !stats.TotalVolume.Equal(dec(600)) {
		t.Errorf("total volume = %s, want 600", stats.TotalVolume)
	}
	// 35 per creation + 5 resolution fee on the 100-unit pool.
	if !stats.TreasuryBalance.Equal(dec(110)) {
		t.Errorf("treasury = %s, want 110", stats.TreasuryBalance)
	}
	if !stats.TotalBurned.Equal(dec(45)) {
		t.Errorf("burned = %s, want 45", stats.TotalBurned)
	}
}

// TestDustQuery pins the stranded-remainder calculation on a resolved market:
//
//	YES pool = 300 (3 × 100), NO pool = 700, total = 1000
//	fee 5% → prize pool 950; each winner gets floor(100 × 950 / 300) = 316
//	dust = 950 − 3 × 316 = 2
func TestDustQuery(t *testing.T) {
	e := newEnv(t)
	for _, who := range []domain.Address{"alice", "bob", "carol", "dave"} {
		e.fund(who, 10_000)
	}
	id := e.create("alice", domain.SideYes, 100)
	if err := e.eng.Stake(as("bob"), "bob", id, domain.SideYes, dec(100)); err != nil {
		t.Fatalf("stake bob: %v", err)
	}
	if err := e.eng.Stake(as("carol"), "carol", id, domain.SideYes, dec(100)); err != nil {
		t.Fatalf("stake carol: %v", err)
	}
	if err := e.eng.Stake(as("dave"), "dave", id, domain.SideNo, dec(700)); err != nil {
		t.Fatalf("stake dave: %v", err)
	}

	if _, err := e.eng.Dust(context.Background(), id); !errors.Is(err, domain.ErrMarketNotResolved) {
		t.Errorf("dust before resolve err = %v, want ErrMarketNotResolved", err)
	}

	e.clk.Advance(3 * time.Hour)
	if err := e.eng.Resolve(as(testAdmin), id, domain.SideYes); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	dust, err := e.eng.Dust(context.Background(), id)
	if err != nil {
		t.Fatalf("dust: %v", err)
	}
	if !dust.Equal(dec(2)) {
		t.Errorf("dust = %s, want 2", dust)
	}
}

// TestPoolConservation checks that each market's pools always equal the sum of
// its recorded stakes.
func TestPoolConservation(t *testing.T) {
	e := newEnv(t)
	stakers := []struct {
		who    domain.Address
		side   domain.Side
		amount int64
	}{
		{"bob", domain.SideNo, 137},
		{"carol", domain.SideYes, 251},
		{"dave", domain.SideNo, 100},
		{"erin", domain.SideYes, 499},
	}
	e.fund("alice", 10_000)
	for _, s := range stakers {
		e.fund(s.who, 10_000)
	}

	id := e.create("alice", domain.SideYes, 100)
	for _, s := range stakers {
		if err := e.eng.Stake(as(s.who), s.who, id, s.side, dec(s.amount)); err != nil {
			t.Fatalf("stake %s: %v", s.who, err)
		}
	}

	m, _ := e.eng.GetMarket(context.Background(), id)
	sumYes, sumNo := decimal.Zero, decimal.Zero
	for _, who := range append([]domain.Address{"alice"}, "bob", "carol", "dave", "erin") {
		s, err := e.eng.GetStake(context.Background(), id, who)
		if err != nil {
			t.Fatalf("get stake %s: %v", who, err)
		}
		if s.Side == domain.SideYes {
			sumYes = sumYes.Add(s.Amount)
		} else {
			sumNo = sumNo.Add(s.Amount)
		}
	}
	if !m.YesPool.Equal(sumYes) || !m.NoPool.Equal(sumNo) {
		t.Errorf("pools yes=%s no=%s, stakes sum yes=%s no=%s",
			m.YesPool, m.NoPool, sumYes, sumNo)
	}
}

func TestListMarkets(t *testing.T) {
	e := newEnv(t)
	e.fund("alice", 10_000)
	e.create("alice", domain.SideYes, 100)
	e.create("alice", domain.SideNo, 100)

	markets, err := e.eng.ListMarkets(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("len(markets) = %d, want 2", len(markets))
	}
	if markets[0].ID != 1 || markets[1].ID != 2 {
		t.Errorf("ids = %d, %d; want 1, 2", markets[0].ID, markets[1].ID)
	}
}
