package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the subject a session token is issued for.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenClaims are the claims embedded in a session token. The subject id
// travels in the registered "sub" claim.
type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the identity the claims were issued for.
func (c *TokenClaims) Identity() Identity {
	return Identity{ID: c.Subject, Email: c.Email, Role: c.Role}
}

// IsAdmin reports whether the embedded role claim is admin.
func (c *TokenClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
