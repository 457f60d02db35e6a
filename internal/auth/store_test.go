package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/devdazzlee/sphire-client/internal/storage"
	"github.com/devdazzlee/sphire-client/internal/token"
	"github.com/devdazzlee/sphire-client/pkg/api"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

type stubAPI struct {
	loginPayload *api.AuthPayload
	loginErr     error
	meUser       *types.User
	meErr        error
}

func (s *stubAPI) Login(ctx context.Context, input api.LoginInput) (*api.AuthPayload, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.loginPayload, nil
}

func (s *stubAPI) Register(ctx context.Context, input api.RegisterInput) (*api.AuthPayload, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.loginPayload, nil
}

func (s *stubAPI) Me(ctx context.Context, tok string) (*types.User, error) {
	if s.meErr != nil {
		return nil, s.meErr
	}
	return s.meUser, nil
}

func newStoreWith(t *testing.T, client apiClient, snapshots storage.Store, requireAdmin bool) (*Store, *token.Manager) {
	t.Helper()
	tokens, err := token.NewManager(snapshots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store, err := NewStore(StoreParams{API: client, Tokens: tokens, RequireAdmin: requireAdmin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store, tokens
}

func customer() types.User {
	return types.User{ID: uuid.New(), Name: "Jo", Email: "jo@x.y", Role: types.RoleCustomer}
}

func TestLoginPersistsSession(t *testing.T) {
	t.Parallel()

	user := customer()
	client := &stubAPI{loginPayload: &api.AuthPayload{User: user, Token: "tok-9"}}
	store, tokens := newStoreWith(t, client, storage.NewMemory(), false)

	res := store.Login(context.Background(), api.LoginInput{Email: "jo@x.y", Password: "secret1"})
	if !res.Success {
		t.Fatalf("login failed: %s", res.Message)
	}
	if tokens.Token() != "tok-9" {
		t.Fatalf("token not persisted, got %q", tokens.Token())
	}
	state := store.State()
	if !state.IsAuthenticated || state.User == nil || state.User.Email != "jo@x.y" {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestLoginValidatesInputBeforeCalling(t *testing.T) {
	t.Parallel()

	store, _ := newStoreWith(t, &stubAPI{}, storage.NewMemory(), false)

	res := store.Login(context.Background(), api.LoginInput{Email: "not-an-email", Password: "secret1"})
	if res.Success {
		t.Fatal("expected validation failure")
	}
	if res.Message != "email must be a valid email" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestLoginFailureReturnsMessageWithoutSession(t *testing.T) {
	t.Parallel()

	client := &stubAPI{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	store, tokens := newStoreWith(t, client, storage.NewMemory(), false)

	res := store.Login(context.Background(), api.LoginInput{Email: "jo@x.y", Password: "wrongpw"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Message != "invalid credentials" {
		t.Fatalf("server message should pass through, got %q", res.Message)
	}
	if tokens.HasSession() {
		t.Fatal("failed login must not persist a session")
	}
}

func TestAdminGateRejectsCustomers(t *testing.T) {
	t.Parallel()

	user := customer()
	client := &stubAPI{loginPayload: &api.AuthPayload{User: user, Token: "tok"}}
	store, tokens := newStoreWith(t, client, storage.NewMemory(), true)

	res := store.Login(context.Background(), api.LoginInput{Email: "jo@x.y", Password: "secret1"})
	if res.Success {
		t.Fatal("customer should be rejected by the admin gate")
	}
	if tokens.HasSession() {
		t.Fatal("rejected login must not persist a session")
	}
}

func TestBootstrapConfirmsPersistedSession(t *testing.T) {
	t.Parallel()

	snapshots := storage.NewMemory()
	user := customer()
	seed, _ := token.NewManager(snapshots)
	seed.Save(context.Background(), "tok-1", user)

	client := &stubAPI{meUser: &user}
	store, _ := newStoreWith(t, client, snapshots, false)

	if err := store.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	state := store.State()
	if !state.IsAuthenticated || state.IsLoading {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestBootstrapClearsRejectedSession(t *testing.T) {
	t.Parallel()

	snapshots := storage.NewMemory()
	seed, _ := token.NewManager(snapshots)
	seed.Save(context.Background(), "tok-stale", customer())

	client := &stubAPI{meErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "token expired")}
	store, tokens := newStoreWith(t, client, snapshots, false)

	if err := store.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if store.State().IsAuthenticated {
		t.Fatal("rejected session should fall back to anonymous")
	}
	if tokens.HasSession() {
		t.Fatal("rejected token should be cleared from storage")
	}
}

func TestLogoutClearsState(t *testing.T) {
	t.Parallel()

	user := customer()
	client := &stubAPI{loginPayload: &api.AuthPayload{User: user, Token: "tok"}}
	store, tokens := newStoreWith(t, client, storage.NewMemory(), false)
	store.Login(context.Background(), api.LoginInput{Email: "jo@x.y", Password: "secret1"})

	res := store.Logout(context.Background())
	if !res.Success {
		t.Fatalf("logout failed: %s", res.Message)
	}
	if store.State().IsAuthenticated || tokens.HasSession() {
		t.Fatal("logout should clear both memory and storage")
	}
}
