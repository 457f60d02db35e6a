// Package mockapi is an in-process implementation of the Sphire REST
// contract. It exists so the SDK's online path can be developed and
// exercised without the real backend; state lives in memory only.
package mockapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/devdazzlee/sphire-client/internal/token"
	"github.com/devdazzlee/sphire-client/pkg/config"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/logger"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

type Server struct {
	cfg   config.MockConfig
	logg  *logger.Logger
	state *state
}

func NewServer(cfg config.MockConfig, logg *logger.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "jwt secret is required")
	}
	s := &Server{cfg: cfg, logg: logg, state: newState()}
	if cfg.SeedDemoCatalog {
		s.state.seedDemoCatalog()
	}
	if cfg.SeedAdminEmail != "" && cfg.SeedAdminPassword != "" {
		if _, err := s.state.addUser("Admin", cfg.SeedAdminEmail, cfg.SeedAdminPassword, types.RoleAdmin); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Handler builds the chi router serving the full endpoint surface under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID(s.logg))
	r.Use(logging(s.logg))
	r.Use(recoverer(s.logg))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		r.Get("/products", s.handleListProducts)
		r.Get("/products/categories", s.handleListCategories)
		r.Get("/products/{productID}", s.handleGetProduct)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/auth/me", s.handleMe)

			r.Get("/cart", s.handleGetCart)
			r.Post("/cart/add", s.handleCartAdd)
			r.Put("/cart/update/{productID}", s.handleCartUpdate)
			r.Delete("/cart/remove/{productID}", s.handleCartRemove)
			r.Delete("/cart/clear", s.handleCartClear)

			r.Post("/orders", s.handleCreateOrder)
			r.Get("/orders", s.handleListOrders)
			r.Get("/orders/{orderID}", s.handleGetOrder)
			r.Put("/orders/{orderID}/cancel", s.handleCancelOrder)
		})
	})
	return r
}

func (s *Server) mintToken(user types.User) (string, error) {
	now := time.Now()
	claims := token.Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry())),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "signing token")
	}
	return signed, nil
}

func (s *Server) userFromToken(raw string) (types.User, error) {
	claims := &token.Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return types.User{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	rec, ok := s.state.findUser(claims.Email)
	if !ok {
		return types.User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user")
	}
	return rec.user, nil
}

func (s *Server) checkPassword(rec *userRecord, password string) error {
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)); err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return nil
}
