// Package auth holds session state derived from the persisted token,
// revalidated against the server on startup.
package auth

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/devdazzlee/sphire-client/internal/token"
	"github.com/devdazzlee/sphire-client/pkg/api"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/logger"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

// Result mirrors the cart store's propagation policy: operations return a
// structured outcome instead of throwing, so callers render inline errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// State is the session view the UI consumes.
type State struct {
	User            *types.User
	IsLoading       bool
	IsAuthenticated bool
}

type apiClient interface {
	Login(ctx context.Context, input api.LoginInput) (*api.AuthPayload, error)
	Register(ctx context.Context, input api.RegisterInput) (*api.AuthPayload, error)
	Me(ctx context.Context, tok string) (*types.User, error)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

type StoreParams struct {
	API    apiClient
	Tokens *token.Manager
	Logger *logger.Logger

	// RequireAdmin gates sessions to admin-role users (dashboard builds).
	// Client-side business rule only; the server enforces real access.
	RequireAdmin bool
}

type Store struct {
	apiClient    apiClient
	tokens       *token.Manager
	logg         *logger.Logger
	requireAdmin bool

	mu    sync.Mutex
	state State
}

func NewStore(params StoreParams) (*Store, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	if params.Tokens == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token manager is required")
	}
	return &Store{
		apiClient:    params.API,
		tokens:       params.Tokens,
		logg:         params.Logger,
		requireAdmin: params.RequireAdmin,
	}, nil
}

// State returns a copy of the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Bootstrap hydrates the persisted session and validates it with a who-am-I
// call. An invalid or rejected token clears persisted state and falls back
// to anonymous; only storage failures are returned as errors.
func (s *Store) Bootstrap(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.tokens.Load(ctx); err != nil {
		return err
	}
	if !s.tokens.HasSession() {
		s.setAnonymous()
		return nil
	}

	user, err := s.apiClient.Me(ctx, s.tokens.Token())
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "persisted session rejected, clearing")
		}
		if clearErr := s.tokens.Clear(ctx); clearErr != nil {
			return clearErr
		}
		s.setAnonymous()
		return nil
	}

	if s.requireAdmin && !user.IsAdmin() {
		if clearErr := s.tokens.Clear(ctx); clearErr != nil {
			return clearErr
		}
		s.setAnonymous()
		return nil
	}

	// refresh the cached user alongside the confirmed token
	if err := s.tokens.Save(ctx, s.tokens.Token(), *user); err != nil {
		return err
	}
	s.setAuthenticated(user)
	return nil
}

// Login issues one network call and persists the session on success.
func (s *Store) Login(ctx context.Context, input api.LoginInput) Result {
	if err := validate.Struct(input); err != nil {
		return Result{Success: false, Message: validationMessage(err)}
	}

	s.setLoading(true)
	defer s.setLoading(false)

	payload, err := s.apiClient.Login(ctx, input)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "login failed", err)
		}
		return Result{Success: false, Message: pkgerrors.UserMessage(err)}
	}

	if s.requireAdmin && !payload.User.IsAdmin() {
		return Result{Success: false, Message: "admin access required"}
	}

	if err := s.tokens.Save(ctx, payload.Token, payload.User); err != nil {
		return Result{Success: false, Message: pkgerrors.UserMessage(err)}
	}
	s.setAuthenticated(&payload.User)
	return Result{Success: true}
}

// Register creates an account and starts a session in one step.
func (s *Store) Register(ctx context.Context, input api.RegisterInput) Result {
	if err := validate.Struct(input); err != nil {
		return Result{Success: false, Message: validationMessage(err)}
	}

	s.setLoading(true)
	defer s.setLoading(false)

	payload, err := s.apiClient.Register(ctx, input)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "registration failed", err)
		}
		return Result{Success: false, Message: pkgerrors.UserMessage(err)}
	}

	if err := s.tokens.Save(ctx, payload.Token, payload.User); err != nil {
		return Result{Success: false, Message: pkgerrors.UserMessage(err)}
	}
	s.setAuthenticated(&payload.User)
	return Result{Success: true}
}

// Logout clears the persisted session. Purely local; the token simply stops
// being presented.
func (s *Store) Logout(ctx context.Context) Result {
	if err := s.tokens.Clear(ctx); err != nil {
		return Result{Success: false, Message: pkgerrors.UserMessage(err)}
	}
	s.setAnonymous()
	return Result{Success: true}
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = loading
}

func (s *Store) setAuthenticated(user *types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.state.User = &u
	s.state.IsAuthenticated = true
}

func (s *Store) setAnonymous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = nil
	s.state.IsAuthenticated = false
}

func validationMessage(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "email":
			return fe.Field() + " must be a valid email"
		case "min":
			return fe.Field() + " must be at least " + fe.Param() + " characters"
		}
		return fe.Field() + " is invalid"
	}
	return "validation failed"
}
