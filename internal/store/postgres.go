package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Postgres is a Store backed by a single `records` table (key TEXT PRIMARY
// KEY, payload BYTEA). Update maps to a database transaction; reads inside an
// update take row locks so concurrent engine instances serialise per key.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres creates a Postgres store on an existing connection pool.
// The records table is created by the migrations run at boot.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Get returns the payload stored under key.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := p.db.GetContext(ctx, &payload,
		`SELECT payload FROM records WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store.Postgres.Get %q: %w", key, err)
	}
	return payload, true, nil
}

// Set upserts the payload under key.
func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO records (key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET payload = $2, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("store.Postgres.Set %q: %w", key, err)
	}
	return nil
}

// Has reports whether key exists.
func (p *Postgres) Has(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM records WHERE key = $1)`, key)
	if err != nil {
		return false, fmt.Errorf("store.Postgres.Has %q: %w", key, err)
	}
	return exists, nil
}

// Update runs fn inside a database transaction. Reads lock the touched rows
// (FOR UPDATE) so two updates over the same keys cannot interleave.
func (p *Postgres) Update(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store.Postgres.Update: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&postgresTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store.Postgres.Update: commit: %w", err)
	}
	return nil
}

type postgresTx struct {
	tx *sqlx.Tx
}

func (t *postgresTx) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := t.tx.GetContext(ctx, &payload,
		`SELECT payload FROM records WHERE key = $1 FOR UPDATE`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store.postgresTx.Get %q: %w", key, err)
	}
	return payload, true, nil
}

func (t *postgresTx) Set(ctx context.Context, key string, value []byte) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO records (key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET payload = $2, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("store.postgresTx.Set %q: %w", key, err)
	}
	return nil
}

func (t *postgresTx) Has(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := t.tx.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM records WHERE key = $1)`, key)
	if err != nil {
		return false, fmt.Errorf("store.postgresTx.Has %q: %w", key, err)
	}
	return exists, nil
}
