package services

import (
	"context"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/models"
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 15 * time.Minute
)

// AttemptOutcome is the result of applying one login attempt to an account
type AttemptOutcome int

const (
	// OutcomeSuccess: correct password, counter reset, last login stamped
	OutcomeSuccess AttemptOutcome = iota
	// OutcomeFailed: wrong password, counter incremented, still below threshold
	OutcomeFailed
	// OutcomeLocked: wrong password that reached the threshold; this attempt set the lock
	OutcomeLocked
	// OutcomeStillLocked: the account was already locked when the attempt was applied
	OutcomeStillLocked
	// OutcomeDisabled: correct password on an inactive account
	OutcomeDisabled
)

func (o AttemptOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeLocked:
		return "locked"
	case OutcomeStillLocked:
		return "still_locked"
	case OutcomeDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// AttemptResult describes what a login attempt did to an account
type AttemptResult struct {
	Outcome  AttemptOutcome
	Attempts int        // failed_login_attempts after the attempt
	Until    *time.Time // lock expiry for OutcomeLocked and OutcomeStillLocked
	Unlocked bool       // an expired lock was cleared before the attempt was counted
}

// LockoutPolicy holds the lockout thresholds
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy locks for 15 minutes after 5 failures
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

// LockedUntil returns the lock expiry if u is locked at now
func (p LockoutPolicy) LockedUntil(u *models.User, now time.Time) (time.Time, bool) {
	if u.LockedUntil == nil || !now.Before(*u.LockedUntil) {
		return time.Time{}, false
	}
	return *u.LockedUntil, true
}

// Apply mutates u for one login attempt at now. A lock still in force wins
// over the credential result and leaves u unchanged. An expired lock is
// cleared and the counter restarts from zero before the attempt counts.
func (p LockoutPolicy) Apply(u *models.User, passwordOK bool, now time.Time) AttemptResult {
	if until, locked := p.LockedUntil(u, now); locked {
		return AttemptResult{Outcome: OutcomeStillLocked, Attempts: u.FailedLoginAttempts, Until: &until}
	}

	var result AttemptResult
	if u.LockedUntil != nil {
		u.LockedUntil = nil
		u.FailedLoginAttempts = 0
		result.Unlocked = true
	}

	switch {
	case passwordOK && !u.IsActive:
		u.FailedLoginAttempts = 0
		result.Outcome = OutcomeDisabled
	case passwordOK:
		u.FailedLoginAttempts = 0
		stamp := now
		u.LastLogin = &stamp
		result.Outcome = OutcomeSuccess
	default:
		u.FailedLoginAttempts++
		result.Outcome = OutcomeFailed
		if u.FailedLoginAttempts >= p.Threshold {
			until := now.Add(p.Duration)
			u.LockedUntil = &until
			result.Outcome = OutcomeLocked
			result.Until = &until
		}
	}

	result.Attempts = u.FailedLoginAttempts
	return result
}

// LoginStateStore applies a read-modify-write to one account's login state
// under a per-account lock and commits it atomically.
type LoginStateStore interface {
	UpdateLoginState(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error)
}

// LockoutGuard tracks failed logins and locks accounts
type LockoutGuard struct {
	policy LockoutPolicy
	store  LoginStateStore
	now    func() time.Time
}

// NewLockoutGuard creates a LockoutGuard. Non-positive policy values fall
// back to the defaults.
func NewLockoutGuard(policy LockoutPolicy, store LoginStateStore) *LockoutGuard {
	if policy.Threshold < 1 {
		policy.Threshold = DefaultLockoutThreshold
	}
	if policy.Duration <= 0 {
		policy.Duration = DefaultLockoutDuration
	}
	return &LockoutGuard{policy: policy, store: store, now: time.Now}
}

// SetClock replaces the time source
func (g *LockoutGuard) SetClock(now func() time.Time) {
	g.now = now
}

// Check fails with *models.AccountLockedError if u is locked right now.
// It reads the snapshot it is given and writes nothing.
func (g *LockoutGuard) Check(u *models.User) error {
	if until, locked := g.policy.LockedUntil(u, g.now()); locked {
		return &models.AccountLockedError{Until: until}
	}
	return nil
}

// Record applies a login attempt to the stored account. The lock state is
// re-read inside the store's transaction, so attempts racing past Check are
// still counted at most once and lock the account exactly once.
func (g *LockoutGuard) Record(ctx context.Context, userID string, passwordOK bool) (AttemptResult, *models.User, error) {
	var result AttemptResult

	user, err := g.store.UpdateLoginState(ctx, userID, func(u *models.User) error {
		result = g.policy.Apply(u, passwordOK, g.now())
		return nil
	})
	if err != nil {
		return AttemptResult{}, nil, err
	}

	return result, user, nil
}
