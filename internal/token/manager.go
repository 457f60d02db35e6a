// Package token wraps persisted-storage access for the auth token and the
// cached user object.
package token

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/devdazzlee/sphire-client/internal/storage"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

// Manager caches the token and user in memory and mirrors every change to
// the snapshot store. A empty token means anonymous.
type Manager struct {
	store storage.Store

	mu    sync.RWMutex
	token string
	user  *types.User
}

func NewManager(store storage.Store) (*Manager, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "snapshot store is required")
	}
	return &Manager{store: store}, nil
}

// Load hydrates the manager from persisted storage. Missing keys leave the
// manager anonymous; a corrupt cached user is discarded rather than fatal.
func (m *Manager) Load(ctx context.Context) error {
	raw, ok, err := m.store.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !ok {
		m.token = ""
		m.user = nil
		return nil
	}
	m.token = string(raw)

	rawUser, ok, err := m.store.Get(ctx, storage.KeyUser)
	if err != nil {
		return err
	}
	if !ok {
		m.user = nil
		return nil
	}
	var user types.User
	if err := json.Unmarshal(rawUser, &user); err != nil {
		m.user = nil
		return nil
	}
	m.user = &user
	return nil
}

// Save persists the token and cached user.
func (m *Manager) Save(ctx context.Context, tok string, user types.User) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cached user")
	}
	if err := m.store.Set(ctx, storage.KeyAuthToken, []byte(tok)); err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.KeyUser, rawUser); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = tok
	u := user
	m.user = &u
	return nil
}

// Clear drops both the in-memory session and the persisted copies.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, storage.KeyAuthToken); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, storage.KeyUser); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.user = nil
	return nil
}

// Token returns the current token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns the cached user, if any.
func (m *Manager) User() *types.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// HasSession reports whether a token is present. Presence alone selects
// online mode; validity is only established by /auth/me.
func (m *Manager) HasSession() bool {
	return m.Token() != ""
}
