package wishlist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/devdazzlee/sphire-client/internal/storage"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

func product(name string) types.Product {
	return types.Product{ID: uuid.New(), Name: name, Price: decimal.NewFromInt(5), Category: "test"}
}

func newTestStore(t *testing.T, snapshots storage.Store) *Store {
	t.Helper()
	store, err := NewStore(StoreParams{
		Snapshots: snapshots,
		Now:       func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store
}

func TestAddIsSetOnProductID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, storage.NewMemory())
	ctx := context.Background()
	p := product("mug")

	if err := store.Add(ctx, p); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := store.Add(ctx, p); err != nil {
		t.Fatalf("duplicate add should be a no-op, got %v", err)
	}

	if store.Count() != 1 {
		t.Fatalf("expected one entry, got %d", store.Count())
	}
	if !store.Contains(p.ID) {
		t.Fatal("expected product to be present")
	}
	entries := store.Entries()
	if entries[0].AddedAt.IsZero() {
		t.Fatal("entry should carry a timestamp")
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, storage.NewMemory())
	if err := store.Remove(context.Background(), uuid.New()); err != nil {
		t.Fatalf("removing an absent id should not error: %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, storage.NewMemory())
	ctx := context.Background()
	a, b := product("a"), product("b")
	store.Add(ctx, a)
	store.Add(ctx, b)

	if err := store.Remove(ctx, a.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if store.Contains(a.ID) || !store.Contains(b.ID) {
		t.Fatal("remove dropped the wrong entry")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("expected empty wishlist, got %d entries", store.Count())
	}
}

func TestHydrateRestoresPersistedEntries(t *testing.T) {
	t.Parallel()

	snapshots := storage.NewMemory()
	ctx := context.Background()

	first := newTestStore(t, snapshots)
	p := product("keepsake")
	first.Add(ctx, p)

	second := newTestStore(t, snapshots)
	if err := second.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}
	if !second.Contains(p.ID) || second.Count() != 1 {
		t.Fatal("hydrated wishlist mismatch")
	}
}
