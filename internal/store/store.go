// Package store provides the persistent key-value substrate the escrow engine
// writes its records to. The engine treats it as a plain mapping with
// atomic multi-key updates; durability and eviction policy belong to the
// backing implementation.
package store

import "context"

// Tx is the view of the store inside an atomic update. Reads inside an update
// observe the update's own writes.
type Tx interface {
	// Get returns the value stored under key, and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Has reports whether key exists.
	Has(ctx context.Context, key string) (bool, error)
}

// Store is a durable key-value mapping. Update runs fn atomically: either all
// of fn's writes are applied, or none are.
type Store interface {
	Tx

	// Update executes fn inside a transaction. If fn returns an error the
	// transaction is rolled back and the error is returned unchanged.
	Update(ctx context.Context, fn func(tx Tx) error) error
}
