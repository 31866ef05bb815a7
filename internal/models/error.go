package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrRateLimited        = errors.New("too many requests")

	// Account state errors
	ErrAccountLocked   = errors.New("account is temporarily locked")
	ErrAccountDisabled = errors.New("account is disabled")

	// Registration errors
	ErrWeakPassword = errors.New("password does not meet requirements")
	ErrEmailTaken   = errors.New("email already registered")
)

// AccountLockedError carries the unlock time of a locked account.
// errors.Is(err, ErrAccountLocked) holds for it.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("%s until %s", ErrAccountLocked.Error(), e.Until.UTC().Format(time.RFC3339))
}

func (e *AccountLockedError) Unwrap() error {
	return ErrAccountLocked
}

// RetryAfter returns how long the caller should wait, measured from now.
func (e *AccountLockedError) RetryAfter(now time.Time) time.Duration {
	if d := e.Until.Sub(now); d > 0 {
		return d
	}
	return 0
}

// WeakPasswordError explains why a password was rejected.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return e.Reason
}

func (e *WeakPasswordError) Unwrap() error {
	return ErrWeakPassword
}
