package auth

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLen    = 8
	MaxPasswordLen    = 72 // bytes; bcrypt ignores input past 72
)

// PasswordValidationError holds the reason a password was rejected
type PasswordValidationError struct {
	Reason string
}

func (e *PasswordValidationError) Error() string {
	return e.Reason
}

// Common passwords rejected at registration, compared case-insensitively
var commonPasswords = map[string]bool{
	"password":  true,
	"12345678":  true,
	"qwerty123": true,
}

// Hasher hashes and verifies passwords with bcrypt at a fixed cost
type Hasher struct {
	cost      int
	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher creates a Hasher; out-of-range costs fall back to DefaultBcryptCost
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the bcrypt work factor used for new hashes
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt hash of password
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify reports whether password matches hash. A malformed or empty hash
// never matches.
func (h *Hasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NeedsRehash reports whether hash was produced with a different cost than h uses
func (h *Hasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// BurnVerify performs a throwaway comparison at the hasher's cost, so an
// unknown email costs the same bcrypt work as a wrong password.
func (h *Hasher) BurnVerify(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("rebel-budget-timing-equaliser"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}

// ValidatePassword enforces the registration password policy: a minimum
// length in characters, the bcrypt byte limit and a small denylist. No
// character-class rules apply.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return &PasswordValidationError{Reason: fmt.Sprintf("Password must be at least %d characters", MinPasswordLen)}
	}
	if len(password) > MaxPasswordLen {
		return &PasswordValidationError{Reason: fmt.Sprintf("Password must be at most %d bytes", MaxPasswordLen)}
	}
	if commonPasswords[strings.ToLower(password)] {
		return &PasswordValidationError{Reason: "Password is too common"}
	}
	return nil
}
