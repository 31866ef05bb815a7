package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/auth"
	"github.com/BradenHooton/rebelbudget/internal/models"
	pkgauth "github.com/BradenHooton/rebelbudget/pkg/auth"
	pkglogger "github.com/BradenHooton/rebelbudget/pkg/logger"
)

// notifyTimeout bounds a lockout notification sent after the response
const notifyTimeout = 10 * time.Second

// AccountStore is the persistence the auth flows need
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	LoginStateStore
}

// RegisterInput holds a sign-up request
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AuthService handles authentication business logic
type AuthService struct {
	store    AccountStore
	hasher   *pkgauth.Hasher
	tokens   *auth.TokenManager
	guard    *LockoutGuard
	timing   *auth.TimingDelay
	audit    AuditSink
	notifier LockoutNotifier
	logger   *slog.Logger
}

// AuthOption configures optional AuthService collaborators
type AuthOption func(*AuthService)

// WithTimingDelay pads failed logins
func WithTimingDelay(td *auth.TimingDelay) AuthOption {
	return func(s *AuthService) { s.timing = td }
}

// WithLockoutNotifier sends a notice when an account locks
func WithLockoutNotifier(n LockoutNotifier) AuthOption {
	return func(s *AuthService) { s.notifier = n }
}

// NewAuthService creates a new AuthService
func NewAuthService(
	store AccountStore,
	hasher *pkgauth.Hasher,
	tokens *auth.TokenManager,
	guard *LockoutGuard,
	audit AuditSink,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		guard:    guard,
		audit:    audit,
		notifier: NoopNotifier{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with the user role and signs the caller in.
// It fails with *models.WeakPasswordError or models.ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrBadRequest)
	}

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, &models.WeakPasswordError{Reason: err.Error()}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         models.RoleUser,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			s.logger.Info("registration rejected, email taken",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil, models.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.audit.Record(ctx, models.AuditEventRegistered, &user.ID, map[string]string{
		"email": pkglogger.SanitizedEmail(email),
	})

	return s.issue(user)
}

// Login verifies credentials, applies the lockout policy and issues a
// token. Unknown emails and wrong passwords both fail with
// models.ErrInvalidCredentials. A locked account fails with
// *models.AccountLockedError before the password is checked.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*AuthResult, error) {
	start := time.Now()
	email = normalizeEmail(email)

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		// Spend the same bcrypt time as a real check.
		s.hasher.BurnVerify(password)
		s.audit.Record(ctx, models.AuditEventLoginFailed, nil, map[string]string{
			"reason":    "unknown_email",
			"email":     pkglogger.SanitizedEmail(email),
			"client_ip": clientIP,
		})
		s.timing.WaitFrom(ctx, start, false)
		return nil, models.ErrInvalidCredentials
	}

	if err := s.guard.Check(user); err != nil {
		s.audit.Record(ctx, models.AuditEventLoginFailed, &user.ID, map[string]string{
			"reason":    "account_locked",
			"client_ip": clientIP,
		})
		return nil, err
	}

	passwordOK := s.hasher.Verify(password, user.PasswordHash)

	result, updated, err := s.guard.Record(ctx, user.ID, passwordOK)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Deleted between lookup and update.
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to record login attempt: %w", err)
	}

	if result.Unlocked {
		s.audit.Record(ctx, models.AuditEventAccountUnlocked, &user.ID, map[string]string{
			"reason": "lock_expired",
		})
	}

	switch result.Outcome {
	case OutcomeStillLocked:
		s.audit.Record(ctx, models.AuditEventLoginFailed, &user.ID, map[string]string{
			"reason":    "account_locked",
			"client_ip": clientIP,
		})
		return nil, &models.AccountLockedError{Until: *result.Until}

	case OutcomeFailed, OutcomeLocked:
		s.audit.Record(ctx, models.AuditEventLoginFailed, &user.ID, map[string]string{
			"reason":          "invalid_password",
			"failed_attempts": fmt.Sprint(result.Attempts),
			"client_ip":       clientIP,
		})
		if result.Outcome == OutcomeLocked {
			s.onLocked(ctx, updated, *result.Until, result.Attempts)
		}
		s.timing.WaitFrom(ctx, start, false)
		return nil, models.ErrInvalidCredentials

	case OutcomeDisabled:
		s.audit.Record(ctx, models.AuditEventLoginFailed, &user.ID, map[string]string{
			"reason":    "account_disabled",
			"client_ip": clientIP,
		})
		return nil, models.ErrAccountDisabled
	}

	s.rehashIfNeeded(ctx, updated, password)

	s.audit.Record(ctx, models.AuditEventLoginSuccess, &user.ID, map[string]string{
		"client_ip": clientIP,
	})

	return s.issue(updated)
}

// onLocked records the lock and notifies the owner without delaying the response
func (s *AuthService) onLocked(ctx context.Context, user *models.User, until time.Time, attempts int) {
	s.audit.Record(ctx, models.AuditEventAccountLocked, &user.ID, map[string]string{
		"failed_attempts": fmt.Sprint(attempts),
		"locked_until":    until.UTC().Format(time.RFC3339),
	})

	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(notifyCtx, notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyAccountLocked(ctx, user.Email, until); err != nil {
			s.logger.Error("failed to send lockout notification",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
		}
	}()
}

// rehashIfNeeded upgrades a hash made at an older cost. Failure is logged only.
func (s *AuthService) rehashIfNeeded(ctx context.Context, user *models.User, password string) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.store.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logger.Warn("failed to upgrade password hash",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return
	}
	user.PasswordHash = hash
}

// CurrentIdentity resolves a bearer token to the identity it carries.
// An empty token fails with models.ErrUnauthenticated.
func (s *AuthService) CurrentIdentity(token string) (models.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return models.Identity{}, models.ErrUnauthenticated
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return models.Identity{}, err
	}
	return claims.Identity(), nil
}

// Me loads the stored profile of the authenticated caller
func (s *AuthService) Me(ctx context.Context, claims *models.TokenClaims) (*models.User, error) {
	if claims == nil {
		return nil, models.ErrUnauthenticated
	}
	user, err := s.store.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Logout records the event. Tokens are stateless, so the client discards
// its copy and the token stays valid until it expires.
func (s *AuthService) Logout(ctx context.Context, claims *models.TokenClaims) {
	if claims == nil {
		return
	}
	subject := claims.Subject
	s.audit.Record(ctx, models.AuditEventLogout, &subject, map[string]string{
		"token_id": claims.ID,
	})
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(models.Identity{ID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}
