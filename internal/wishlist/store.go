// Package wishlist is the local-only saved-items store. No server sync; a
// convenience cache hydrated once at startup and written back after every
// mutation.
package wishlist

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devdazzlee/sphire-client/internal/storage"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/logger"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

type Store struct {
	snapshots storage.Store
	logg      *logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries []types.WishlistEntry
	index   map[uuid.UUID]struct{}
}

type StoreParams struct {
	Snapshots storage.Store
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewStore(params StoreParams) (*Store, error) {
	if params.Snapshots == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "snapshot store is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		snapshots: params.Snapshots,
		logg:      params.Logger,
		now:       now,
		entries:   []types.WishlistEntry{},
		index:     map[uuid.UUID]struct{}{},
	}, nil
}

// Hydrate loads the persisted wishlist. Corrupt snapshots are dropped.
func (s *Store) Hydrate(ctx context.Context) error {
	raw, found, err := s.snapshots.Get(ctx, storage.KeyWishlistSnapshot)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	var entries []types.WishlistEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "discarding corrupt wishlist snapshot")
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []types.WishlistEntry{}
	s.index = map[uuid.UUID]struct{}{}
	for _, entry := range entries {
		if _, dup := s.index[entry.Product.ID]; dup {
			continue
		}
		s.entries = append(s.entries, entry)
		s.index[entry.Product.ID] = struct{}{}
	}
	return nil
}

// Add stores the product with a timestamp. Adding an already-present
// product is a no-op: set semantics on the product id.
func (s *Store) Add(ctx context.Context, product types.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, present := s.index[product.ID]; present {
		return nil
	}
	s.entries = append(s.entries, types.WishlistEntry{Product: product, AddedAt: s.now().UTC()})
	s.index[product.ID] = struct{}{}
	return s.persistLocked(ctx)
}

// Remove drops the entry; removing an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, productID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, present := s.index[productID]; !present {
		return nil
	}
	kept := make([]types.WishlistEntry, 0, len(s.entries)-1)
	for _, entry := range s.entries {
		if entry.Product.ID == productID {
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
	delete(s.index, productID)
	return s.persistLocked(ctx)
}

func (s *Store) Contains(productID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, present := s.index[productID]
	return present
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy in insertion order.
func (s *Store) Entries() []types.WishlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.WishlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []types.WishlistEntry{}
	s.index = map[uuid.UUID]struct{}{}
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding wishlist snapshot")
	}
	return s.snapshots.Set(ctx, storage.KeyWishlistSnapshot, raw)
}
