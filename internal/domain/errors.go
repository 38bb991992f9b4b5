package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Initialization errors
var (
	// ErrAlreadyInitialized is returned when initialize is called twice.
	ErrAlreadyInitialized = errors.New("engine is already initialized")

	// ErrNotInitialized is returned when an operation runs before initialize.
	ErrNotInitialized = errors.New("engine is not initialized")
)

// Market errors
var (
	// ErrMarketNotFound is returned when no market matches the given id.
	ErrMarketNotFound = errors.New("market not found")

	// ErrMarketNotOpen is returned when staking, resolution or cancellation is
	// attempted on a market that is not in StatusOpen.
	ErrMarketNotOpen = errors.New("market is not open")

	// ErrMarketNotResolved is returned when a claim is attempted before the
	// market has been resolved.
	ErrMarketNotResolved = errors.New("market is not resolved")

	// ErrQuestionLength is returned when the question text is outside the
	// 10–200 character bound.
	ErrQuestionLength = errors.New("question must be 10-200 characters")

	// ErrUnlockTooSoon is returned when the unlock time does not exceed the
	// creation time by at least the minimum lock window.
	ErrUnlockTooSoon = errors.New("unlock time is too soon")

	// ErrInvalidSide is returned when the side is neither YES nor NO.
	ErrInvalidSide = errors.New("side must be YES or NO")

	// ErrInvalidCategory is returned when the category is outside the closed set.
	ErrInvalidCategory = errors.New("unknown market category")
)

// Stake errors
var (
	// ErrStakeNotFound is returned when a participant has no stake in a market.
	ErrStakeNotFound = errors.New("no stake found")

	// ErrStakeTooSmall is returned when the amount is below the minimum stake.
	ErrStakeTooSmall = errors.New("stake amount is below the minimum")

	// ErrAlreadyStaked is returned when a participant attempts a second stake
	// in the same market.
	ErrAlreadyStaked = errors.New("participant already staked in this market")

	// ErrAlreadyClaimed is returned when a stake's payout was already claimed.
	ErrAlreadyClaimed = errors.New("winnings already claimed")

	// ErrNotAWinner is returned when the stake is on the losing side.
	ErrNotAWinner = errors.New("stake is not on the winning side")

	// ErrInvalidWinningPool is returned when the winning pool is zero at claim
	// time. Unreachable if a winning stake exists, since that stake itself
	// contributed to the pool.
	ErrInvalidWinningPool = errors.New("winning pool is empty")
)

// Timing errors
var (
	// ErrTooEarly is returned when resolution is attempted before unlock time.
	ErrTooEarly = errors.New("cannot resolve before unlock time")

	// ErrMarketExpired is returned when a stake arrives at or after unlock time.
	ErrMarketExpired = errors.New("market staking window has closed")

	// ErrCancelWindowClosed is returned when cancellation is attempted after
	// the cancel window or after a third party has staked.
	ErrCancelWindowClosed = errors.New("cancel window has closed or others have staked")
)

// Treasury / ledger errors
var (
	// ErrInsufficientTreasury is returned when a withdrawal exceeds the
	// treasury balance.
	ErrInsufficientTreasury = errors.New("insufficient treasury balance")

	// ErrInvalidAmount is returned when a transfer or withdrawal amount is not
	// strictly positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance is returned by the ledger when the source account
	// cannot cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient account balance")

	// ErrAccountNotFound is returned by the ledger for an unknown account.
	ErrAccountNotFound = errors.New("account not found")
)

// Auth errors
var (
	// ErrUnauthorized is returned when the caller has not proven control of
	// the identity an operation acts for, or when a non-admin calls an
	// admin-only operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenInvalid is returned when a bearer token cannot be parsed or its
	// signature does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrMarketNotFound,
	ErrStakeNotFound,
	ErrAccountNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict
// (double stake, double claim, operation invalid for the current status).
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrAlreadyInitialized,
		ErrAlreadyStaked,
		ErrAlreadyClaimed,
		ErrMarketNotOpen,
		ErrMarketNotResolved,
		ErrNotAWinner,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for input-validation failures (HTTP 400).
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrQuestionLength,
		ErrUnlockTooSoon,
		ErrInvalidSide,
		ErrInvalidCategory,
		ErrStakeTooSmall,
		ErrInvalidAmount,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsTiming returns true for timing-gate violations (too early, expired,
// cancel window closed).
func IsTiming(err error) bool {
	timingErrors := []error{
		ErrTooEarly,
		ErrMarketExpired,
		ErrCancelWindowClosed,
	}
	for _, target := range timingErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrTokenInvalid,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
