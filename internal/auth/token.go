package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenExpiry is the lifetime of a session token
const DefaultTokenExpiry = 24 * time.Hour

// signingMethod is the only algorithm tokens are issued or accepted with
var signingMethod = jwt.SigningMethodHS256

// TokenManager issues and validates stateless session tokens
type TokenManager struct {
	secret      []byte
	tokenExpiry time.Duration
	now         func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, expiry time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret cannot be empty")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("token expiry must be positive, got %s", expiry)
	}
	return &TokenManager{
		secret:      []byte(secret),
		tokenExpiry: expiry,
		now:         time.Now,
	}, nil
}

// SetClock replaces the time source used for issuing and validating tokens
func (tm *TokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

// Issue creates a signed token for identity. It returns the token string and
// the claims embedded in it.
func (tm *TokenManager) Issue(identity models.Identity) (string, *models.TokenClaims, error) {
	if identity.ID == "" || identity.Email == "" {
		return "", nil, fmt.Errorf("identity requires id and email")
	}
	if !models.ValidRole(identity.Role) {
		return "", nil, fmt.Errorf("unknown role %q", identity.Role)
	}

	// NumericDate has second precision; truncate so the claims we return
	// match what a parser reads back.
	issuedAt := tm.now().Truncate(time.Second)

	claims := &models.TokenClaims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(tm.tokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(signingMethod, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, claims, nil
}

// Validate verifies a token's signature, structure and expiry and returns
// its claims. Expired tokens fail with models.ErrTokenExpired; every other
// failure is models.ErrInvalidToken.
func (tm *TokenManager) Validate(tokenString string) (*models.TokenClaims, error) {
	if tokenString == "" {
		return nil, models.ErrInvalidToken
	}

	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, models.ErrInvalidToken
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing subject", models.ErrInvalidToken)
	}
	if !models.ValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: unknown role", models.ErrInvalidToken)
	}

	return claims, nil
}
