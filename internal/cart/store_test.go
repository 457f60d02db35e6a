package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/devdazzlee/sphire-client/internal/storage"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func product(name string, price int64) types.Product {
	return types.Product{
		ID:       uuid.New(),
		Name:     name,
		Price:    decimal.NewFromInt(price),
		Category: "test",
		Stock:    100,
	}
}

func newOfflineStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(StoreParams{
		Tokens:    staticTokens(""),
		Snapshots: storage.NewMemory(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store
}

func assertInvariants(t *testing.T, state types.CartState) {
	t.Helper()
	total := decimal.Zero
	count := 0
	for _, line := range state.Lines {
		if line.Quantity < 1 {
			t.Fatalf("line with quantity %d must not be stored", line.Quantity)
		}
		total = total.Add(line.Total())
		count += line.Quantity
	}
	if !state.Total.Equal(total) {
		t.Fatalf("total drifted: state=%s recomputed=%s", state.Total, total)
	}
	if state.ItemCount != count {
		t.Fatalf("itemCount drifted: state=%d recomputed=%d", state.ItemCount, count)
	}
}

func TestOfflineDoubleAddMergesIntoOneLine(t *testing.T) {
	t.Parallel()

	store := newOfflineStore(t)
	ctx := context.Background()
	p := product("mug", 10)

	if res := store.AddItem(ctx, p); !res.Success {
		t.Fatalf("add failed: %s", res.Message)
	}
	if res := store.AddItem(ctx, p); !res.Success {
		t.Fatalf("second add failed: %s", res.Message)
	}

	state := store.State()
	if len(state.Lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(state.Lines))
	}
	if state.Lines[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", state.Lines[0].Quantity)
	}
	if !state.Total.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected total 20, got %s", state.Total)
	}
	if state.ItemCount != 2 {
		t.Fatalf("expected itemCount 2, got %d", state.ItemCount)
	}
	assertInvariants(t, state)
}

func TestOfflineMutationSequencesKeepAggregatesDerived(t *testing.T) {
	t.Parallel()

	store := newOfflineStore(t)
	ctx := context.Background()
	a := product("a", 10)
	b := product("b", 7)

	store.AddItemWithQuantity(ctx, a, 3)
	assertInvariants(t, store.State())
	store.AddItem(ctx, b)
	assertInvariants(t, store.State())
	store.UpdateQuantity(ctx, a.ID, 5)
	assertInvariants(t, store.State())
	store.RemoveItem(ctx, b.ID)
	assertInvariants(t, store.State())

	state := store.State()
	if len(state.Lines) != 1 || state.Lines[0].Quantity != 5 {
		t.Fatalf("unexpected final lines: %+v", state.Lines)
	}
	if !state.Total.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected total 50, got %s", state.Total)
	}
}

func TestUpdateQuantityZeroAndNegativeRemoveTheLine(t *testing.T) {
	t.Parallel()

	for _, qty := range []int{0, -1} {
		store := newOfflineStore(t)
		ctx := context.Background()
		p := product("mug", 10)
		store.AddItem(ctx, p)

		if res := store.UpdateQuantity(ctx, p.ID, qty); !res.Success {
			t.Fatalf("update to %d failed: %s", qty, res.Message)
		}
		state := store.State()
		if _, found := state.Line(p.ID); found {
			t.Fatalf("line should be absent after update to %d", qty)
		}
		assertInvariants(t, state)
	}
}

func TestClearCartYieldsEmptyState(t *testing.T) {
	t.Parallel()

	store := newOfflineStore(t)
	ctx := context.Background()
	store.AddItemWithQuantity(ctx, product("a", 3), 4)
	store.AddItem(ctx, product("b", 9))

	if res := store.ClearCart(ctx); !res.Success {
		t.Fatalf("clear failed: %s", res.Message)
	}
	state := store.State()
	if len(state.Lines) != 0 || !state.Total.Equal(decimal.Zero) || state.ItemCount != 0 {
		t.Fatalf("expected empty cart, got %+v", state)
	}
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	store := newOfflineStore(t)
	res := store.AddItemWithQuantity(context.Background(), product("a", 1), 0)
	if res.Success {
		t.Fatal("expected failure for quantity 0")
	}
	if res.Message == "" {
		t.Fatal("expected a user-facing message")
	}
	if len(store.State().Lines) != 0 {
		t.Fatal("failed add must leave the cart untouched")
	}
}

type stubRemote struct {
	LocalBackend // mutations fall through to local semantics unless overridden

	fetchState types.CartState
	addErr     error
	addStarted chan struct{} // when set, closed once Add has been entered
	addGate    chan struct{} // when set, Add blocks until the gate closes
	addState   *types.CartState
}

func (s *stubRemote) Add(ctx context.Context, current types.CartState, p types.Product, qty int) (types.CartState, error) {
	if s.addStarted != nil {
		close(s.addStarted)
	}
	if s.addGate != nil {
		<-s.addGate
	}
	if s.addErr != nil {
		return types.CartState{}, s.addErr
	}
	if s.addState != nil {
		return *s.addState, nil
	}
	return s.LocalBackend.Add(ctx, current, p, qty)
}

func (s *stubRemote) Fetch(ctx context.Context, current types.CartState) (types.CartState, error) {
	return s.fetchState, nil
}

func TestSyncWithServerMirrorsServerSnapshot(t *testing.T) {
	t.Parallel()

	serverLines := []types.CartLine{
		{Product: product("x", 50), Quantity: 1},
		{Product: product("y", 25), Quantity: 2},
		{Product: product("z", 50), Quantity: 1},
	}
	remote := &stubRemote{fetchState: Reduce(serverLines)}

	store, err := NewStore(StoreParams{
		Tokens:    staticTokens("tok"),
		Remote:    remote,
		Snapshots: storage.NewMemory(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	// pre-existing local-only state gets discarded, not merged
	store.mu.Lock()
	store.state = Reduce([]types.CartLine{{Product: product("local-only", 999), Quantity: 1}})
	store.mu.Unlock()

	if res := store.SyncWithServer(ctx); !res.Success {
		t.Fatalf("sync failed: %s", res.Message)
	}
	state := store.State()
	if len(state.Lines) != 3 {
		t.Fatalf("expected 3 lines from server, got %d", len(state.Lines))
	}
	if !state.Total.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected total 150, got %s", state.Total)
	}
	if state.ItemCount != 4 {
		t.Fatalf("expected itemCount 4, got %d", state.ItemCount)
	}
	assertInvariants(t, state)
}

func TestSyncWithoutSessionIsANoop(t *testing.T) {
	t.Parallel()

	store := newOfflineStore(t)
	ctx := context.Background()
	store.AddItem(ctx, product("a", 5))

	if res := store.SyncWithServer(ctx); !res.Success {
		t.Fatalf("anonymous sync must succeed, got %s", res.Message)
	}
	if len(store.State().Lines) != 1 {
		t.Fatal("anonymous sync must not alter local state")
	}
}

func TestRemoteAddFailureLeavesLocalStateUnchanged(t *testing.T) {
	t.Parallel()

	remote := &stubRemote{addErr: pkgerrors.New(pkgerrors.CodeNetwork, "request failed")}
	store, err := NewStore(StoreParams{
		Tokens:    staticTokens("tok"),
		Remote:    remote,
		Snapshots: storage.NewMemory(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	res := store.AddItem(ctx, product("a", 10))
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Message != "network error, please try again" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if len(store.State().Lines) != 0 {
		t.Fatal("failed remote add must leave local state unchanged")
	}
}

func TestStaleRemoteResponseIsDiscarded(t *testing.T) {
	t.Parallel()

	staleSnap := Reduce([]types.CartLine{{Product: product("stale", 1), Quantity: 1}})
	gate := make(chan struct{})
	started := make(chan struct{})
	remote := &stubRemote{addStarted: started, addGate: gate, addState: &staleSnap}

	store, err := NewStore(StoreParams{
		Tokens:    staticTokens("tok"),
		Remote:    remote,
		Snapshots: storage.NewMemory(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	slowDone := make(chan Result, 1)
	go func() {
		slowDone <- store.AddItem(ctx, product("first", 1))
	}()
	<-started // the slow mutation holds its sequence number before we race it

	// a later mutation lands while the first request is still in flight
	freshSnap := Reduce([]types.CartLine{{Product: product("fresh", 2), Quantity: 2}})
	fast := &stubRemote{addState: &freshSnap}
	store.mu.Lock()
	store.remote = fast
	store.mu.Unlock()
	if res := store.AddItem(ctx, product("second", 2)); !res.Success {
		t.Fatalf("fast add failed: %s", res.Message)
	}

	close(gate)
	if res := <-slowDone; !res.Success {
		t.Fatalf("slow add should still report success: %s", res.Message)
	}

	state := store.State()
	if len(state.Lines) != 1 || state.Lines[0].Product.Name != "fresh" {
		t.Fatalf("stale response must not clobber fresher state, got %+v", state.Lines)
	}
}

func TestSnapshotPersistsAcrossStores(t *testing.T) {
	t.Parallel()

	snapshots := storage.NewMemory()
	first, err := NewStore(StoreParams{Tokens: staticTokens(""), Snapshots: snapshots})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	p := product("a", 12)
	first.AddItemWithQuantity(ctx, p, 2)

	second, err := NewStore(StoreParams{Tokens: staticTokens(""), Snapshots: snapshots})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := second.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}

	state := second.State()
	if len(state.Lines) != 1 || state.Lines[0].Quantity != 2 {
		t.Fatalf("hydrated state mismatch: %+v", state.Lines)
	}
	if !state.Total.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("expected total 24, got %s", state.Total)
	}
	assertInvariants(t, state)
}
