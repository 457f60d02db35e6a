// Package cart maintains the authoritative view of what the current user
// intends to buy, reconciling the fast local copy with the server copy when
// a session exists.
package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/devdazzlee/sphire-client/internal/storage"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/logger"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

// Result is what every store operation hands back to the UI. Operations
// never panic; failures carry a user-facing message and leave local state
// untouched.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ok() Result {
	return Result{Success: true}
}

func fail(err error) Result {
	return Result{Success: false, Message: pkgerrors.UserMessage(err)}
}

// StoreParams groups dependencies for the cart store.
type StoreParams struct {
	Tokens    TokenSource
	Remote    Backend // nil keeps the store permanently offline
	Snapshots storage.Store
	Logger    *logger.Logger
}

// Store is the cart state container. All mutations go through a per-call
// backend dispatch: token present selects the remote backend, otherwise the
// local one.
type Store struct {
	tokens    TokenSource
	local     Backend
	remote    Backend
	snapshots storage.Store
	logg      *logger.Logger

	mu      sync.Mutex
	state   types.CartState
	seq     uint64
	applied uint64
}

func NewStore(params StoreParams) (*Store, error) {
	if params.Tokens == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token source is required")
	}
	if params.Snapshots == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "snapshot store is required")
	}
	return &Store{
		tokens:    params.Tokens,
		local:     NewLocalBackend(),
		remote:    params.Remote,
		snapshots: params.Snapshots,
		logg:      params.Logger,
		state:     types.EmptyCart(),
	}, nil
}

// Hydrate loads the persisted snapshot. Called once at startup, before any
// mutation. A corrupt snapshot is dropped and the cart starts empty.
func (s *Store) Hydrate(ctx context.Context) error {
	raw, found, err := s.snapshots.Get(ctx, storage.KeyCartSnapshot)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	var snap types.CartState
	if err := json.Unmarshal(raw, &snap); err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "discarding corrupt cart snapshot")
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(snap.Lines)
	return nil
}

// State returns a copy of the current cart.
func (s *Store) State() types.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// AddItem adds one unit of the product.
func (s *Store) AddItem(ctx context.Context, product types.Product) Result {
	return s.AddItemWithQuantity(ctx, product, 1)
}

// AddItemWithQuantity adds qty units, merging into an existing line.
func (s *Store) AddItemWithQuantity(ctx context.Context, product types.Product, qty int) Result {
	if qty < 1 {
		return fail(pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1"))
	}
	return s.mutate(ctx, "cart.add", func(ctx context.Context, b Backend, current types.CartState) (types.CartState, error) {
		return b.Add(ctx, current, product, qty)
	})
}

// RemoveItem drops the line for the product entirely.
func (s *Store) RemoveItem(ctx context.Context, productID uuid.UUID) Result {
	return s.mutate(ctx, "cart.remove", func(ctx context.Context, b Backend, current types.CartState) (types.CartState, error) {
		return b.Remove(ctx, current, productID)
	})
}

// UpdateQuantity sets the quantity for the product's line. A quantity of
// zero or below is defined as removal; the branch is explicit rather than
// left to serialization quirks.
func (s *Store) UpdateQuantity(ctx context.Context, productID uuid.UUID, qty int) Result {
	if qty <= 0 {
		return s.RemoveItem(ctx, productID)
	}
	return s.mutate(ctx, "cart.update", func(ctx context.Context, b Backend, current types.CartState) (types.CartState, error) {
		return b.SetQuantity(ctx, current, productID, qty)
	})
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) Result {
	return s.mutate(ctx, "cart.clear", func(ctx context.Context, b Backend, current types.CartState) (types.CartState, error) {
		return b.Clear(ctx, current)
	})
}

// SyncWithServer fetches the server cart and overwrites local state
// unconditionally: the server wins, and any local-only lines added while
// anonymous are discarded, not merged. Without a session this is a no-op,
// not an error, which is what keeps anonymous use working.
func (s *Store) SyncWithServer(ctx context.Context) Result {
	if s.tokens.Token() == "" || s.remote == nil {
		return ok()
	}
	return s.mutate(ctx, "cart.sync", func(ctx context.Context, b Backend, current types.CartState) (types.CartState, error) {
		return b.Fetch(ctx, current)
	})
}

// mutate runs one operation through the backend selected for this call and
// applies the resulting snapshot. Each mutation takes a sequence number
// before it is issued; a response that resolves after a newer mutation has
// already been applied is discarded instead of clobbering fresher state
// (latest-request-wins).
func (s *Store) mutate(ctx context.Context, op string, fn func(ctx context.Context, b Backend, current types.CartState) (types.CartState, error)) Result {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	current := s.state.Clone()
	backend := s.local
	if s.tokens.Token() != "" && s.remote != nil {
		backend = s.remote
	}
	s.mu.Unlock()

	if s.logg != nil {
		ctx = s.logg.WithOperation(ctx, op)
	}

	next, err := fn(ctx, backend, current)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "cart operation failed", err)
		}
		return fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		if s.logg != nil {
			s.logg.Debug(ctx, "discarding stale cart response")
		}
		return ok()
	}
	s.applied = seq
	s.state = next
	s.persistLocked(ctx)
	return ok()
}

// persistLocked writes the full state as the persisted unit. A failed write
// is logged but does not fail the mutation; memory stays authoritative for
// the session and the next successful write repairs the snapshot.
func (s *Store) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(s.state)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "encoding cart snapshot", err)
		}
		return
	}
	if err := s.snapshots.Set(ctx, storage.KeyCartSnapshot, raw); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "persisting cart snapshot", err)
		}
	}
}
