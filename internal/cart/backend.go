package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/devdazzlee/sphire-client/pkg/api"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

// TokenSource reports the current session token; "" means anonymous.
type TokenSource interface {
	Token() string
}

// Backend is the strategy behind every cart mutation. The local variant
// mutates the in-memory copy; the remote variant delegates to the server
// and returns the server's snapshot. The store picks one per call based on
// session presence.
type Backend interface {
	Add(ctx context.Context, current types.CartState, product types.Product, qty int) (types.CartState, error)
	SetQuantity(ctx context.Context, current types.CartState, productID uuid.UUID, qty int) (types.CartState, error)
	Remove(ctx context.Context, current types.CartState, productID uuid.UUID) (types.CartState, error)
	Clear(ctx context.Context, current types.CartState) (types.CartState, error)
	Fetch(ctx context.Context, current types.CartState) (types.CartState, error)
}

// LocalBackend applies mutations against the local copy only.
type LocalBackend struct{}

func NewLocalBackend() LocalBackend {
	return LocalBackend{}
}

func (LocalBackend) Add(ctx context.Context, current types.CartState, product types.Product, qty int) (types.CartState, error) {
	return Reduce(addLine(current.Lines, product, qty)), nil
}

func (LocalBackend) SetQuantity(ctx context.Context, current types.CartState, productID uuid.UUID, qty int) (types.CartState, error) {
	return Reduce(setQuantity(current.Lines, productID, qty)), nil
}

func (LocalBackend) Remove(ctx context.Context, current types.CartState, productID uuid.UUID) (types.CartState, error) {
	return Reduce(removeLine(current.Lines, productID)), nil
}

func (LocalBackend) Clear(ctx context.Context, current types.CartState) (types.CartState, error) {
	return types.EmptyCart(), nil
}

func (LocalBackend) Fetch(ctx context.Context, current types.CartState) (types.CartState, error) {
	return current, nil
}

// RemoteBackend delegates every mutation to the server. The new state is
// always the server's returned snapshot, not a locally computed delta; the
// snapshot is still run through Reduce so aggregates stay derived.
type RemoteBackend struct {
	api    *api.Client
	tokens TokenSource
}

func NewRemoteBackend(client *api.Client, tokens TokenSource) (*RemoteBackend, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	if tokens == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token source is required")
	}
	return &RemoteBackend{api: client, tokens: tokens}, nil
}

func (b *RemoteBackend) Add(ctx context.Context, current types.CartState, product types.Product, qty int) (types.CartState, error) {
	snap, err := b.api.AddToCart(ctx, b.tokens.Token(), product.ID, qty)
	if err != nil {
		return types.CartState{}, err
	}
	return Reduce(snap.Lines), nil
}

func (b *RemoteBackend) SetQuantity(ctx context.Context, current types.CartState, productID uuid.UUID, qty int) (types.CartState, error) {
	snap, err := b.api.UpdateCartItem(ctx, b.tokens.Token(), productID, qty)
	if err != nil {
		return types.CartState{}, err
	}
	return Reduce(snap.Lines), nil
}

func (b *RemoteBackend) Remove(ctx context.Context, current types.CartState, productID uuid.UUID) (types.CartState, error) {
	snap, err := b.api.RemoveFromCart(ctx, b.tokens.Token(), productID)
	if err != nil {
		return types.CartState{}, err
	}
	return Reduce(snap.Lines), nil
}

func (b *RemoteBackend) Clear(ctx context.Context, current types.CartState) (types.CartState, error) {
	snap, err := b.api.ClearCart(ctx, b.tokens.Token())
	if err != nil {
		return types.CartState{}, err
	}
	return Reduce(snap.Lines), nil
}

func (b *RemoteBackend) Fetch(ctx context.Context, current types.CartState) (types.CartState, error) {
	snap, err := b.api.GetCart(ctx, b.tokens.Token())
	if err != nil {
		return types.CartState{}, err
	}
	return Reduce(snap.Lines), nil
}
