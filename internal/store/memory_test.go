package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/outcomely/timelock/internal/store"
)

func TestMemoryBasicOps(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	if ok, _ := m.Has(ctx, "k"); ok {
		t.Error("empty store must not have key")
	}
	if err := m.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v1" {
		t.Errorf("get = %q, %v, %v; want v1, true, nil", v, ok, err)
	}

	// Overwrite.
	_ = m.Set(ctx, "k", []byte("v2"))
	v, _, _ = m.Get(ctx, "k")
	if string(v) != "v2" {
		t.Errorf("after overwrite get = %q, want v2", v)
	}
}

// TestMemoryGetReturnsCopy guards against callers mutating the stored value
// through the returned slice.
func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	_ = m.Set(ctx, "k", []byte("abc"))

	v, _, _ := m.Get(ctx, "k")
	v[0] = 'X'

	v2, _, _ := m.Get(ctx, "k")
	if string(v2) != "abc" {
		t.Errorf("stored value mutated through returned slice: %q", v2)
	}
}

// TestMemoryUpdateRollsBack verifies all-or-nothing semantics: when the
// update function fails, none of its writes survive.
func TestMemoryUpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	_ = m.Set(ctx, "existing", []byte("before"))

	boom := errors.New("boom")
	err := m.Update(ctx, func(tx store.Tx) error {
		if err := tx.Set(ctx, "existing", []byte("after")); err != nil {
			return err
		}
		if err := tx.Set(ctx, "new", []byte("value")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("update err = %v, want boom", err)
	}

	v, _, _ := m.Get(ctx, "existing")
	if string(v) != "before" {
		t.Errorf("existing = %q, want before (write must be rolled back)", v)
	}
	if ok, _ := m.Has(ctx, "new"); ok {
		t.Error("new key must not survive a failed update")
	}
}

// TestMemoryUpdateReadsOwnWrites verifies the overlay: a read inside the
// transaction observes the transaction's earlier writes, while the base map
// stays untouched until commit.
func TestMemoryUpdateReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	_ = m.Set(ctx, "counter", []byte("1"))

	err := m.Update(ctx, func(tx store.Tx) error {
		if err := tx.Set(ctx, "counter", []byte("2")); err != nil {
			return err
		}
		v, ok, err := tx.Get(ctx, "counter")
		if err != nil || !ok {
			t.Fatalf("get inside tx: %v %v", ok, err)
		}
		if string(v) != "2" {
			t.Errorf("read inside tx = %q, want 2", v)
		}
		if ok, _ := tx.Has(ctx, "fresh"); ok {
			t.Error("fresh key must not exist before its write")
		}
		if err := tx.Set(ctx, "fresh", []byte("x")); err != nil {
			return err
		}
		if ok, _ := tx.Has(ctx, "fresh"); !ok {
			t.Error("fresh key must be visible after its write")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	v, _, _ := m.Get(ctx, "counter")
	if string(v) != "2" {
		t.Errorf("counter after commit = %q, want 2", v)
	}
	if ok, _ := m.Has(ctx, "fresh"); !ok {
		t.Error("fresh key must be committed")
	}
}
