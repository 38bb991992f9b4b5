package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/outcomely/timelock/internal/domain"
	"github.com/shopspring/decimal"
)

// Postgres is a Ledger backed by an accounts table plus an append-only
// transfer log. Each Transfer runs in its own transaction with a FOR UPDATE
// balance check, so concurrent transfers out of one account cannot overdraw.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres creates a Postgres ledger on an existing connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Transfer moves amount between accounts inside one transaction.
// The destination account is created on first credit.
func (l *Postgres) Transfer(ctx context.Context, from, to domain.Address, amount decimal.Decimal) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger.Postgres.Transfer: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Lock the source row and check the balance atomically.
	var balance decimal.Decimal
	err = tx.GetContext(ctx, &balance,
		`SELECT balance FROM accounts WHERE address = $1 FOR UPDATE`, string(from))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrAccountNotFound
			return err
		}
		return fmt.Errorf("ledger.Postgres.Transfer lock: %w", err)
	}
	if balance.LessThan(amount) {
		err = domain.ErrInsufficientBalance
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - $1, updated_at = now() WHERE address = $2`,
		amount, string(from)); err != nil {
		return fmt.Errorf("ledger.Postgres.Transfer debit: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (address, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (address) DO UPDATE SET balance = accounts.balance + $2, updated_at = now()`,
		string(to), amount); err != nil {
		return fmt.Errorf("ledger.Postgres.Transfer credit: %w", err)
	}

	// Audit record.
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transfer_log (id, from_address, to_address, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), string(from), string(to), amount, time.Now().UTC()); err != nil {
		return fmt.Errorf("ledger.Postgres.Transfer log: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ledger.Postgres.Transfer: commit: %w", err)
	}
	return nil
}

// Balance returns the account balance; unknown accounts report zero.
func (l *Postgres) Balance(ctx context.Context, account domain.Address) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.db.GetContext(ctx, &balance,
		`SELECT balance FROM accounts WHERE address = $1`, string(account))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("ledger.Postgres.Balance: %w", err)
	}
	return balance, nil
}
