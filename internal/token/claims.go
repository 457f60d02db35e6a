package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
)

// Claims mirrors the JWT payload the backend issues.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Peek decodes the claims without verifying the signature. It exists for
// display purposes only and must never gate a request; the server remains
// the validity oracle.
func Peek(tok string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed token")
	}
	return claims, nil
}

// Expired reports whether the claim's exp lies in the past. Tokens without
// an exp claim are treated as unexpired.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Time.Before(now)
}
