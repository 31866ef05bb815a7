package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/models"
	pkgauth "github.com/BradenHooton/rebelbudget/pkg/auth"
	pkglogger "github.com/BradenHooton/rebelbudget/pkg/logger"
	"github.com/google/uuid"
)

const (
	DefaultUserListLimit = 50
	MaxUserListLimit     = 200
)

// AdminStore is the persistence the admin operations need
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	ToggleRole(ctx context.Context, id string) (*models.User, error)
	ToggleActive(ctx context.Context, id string) (*models.User, error)
	Unlock(ctx context.Context, id string) (*models.User, error)
	Stats(ctx context.Context, now time.Time) (*models.UserStats, error)
}

// DashboardStats contains aggregate account counts
type DashboardStats struct {
	TotalUsers    int64 `json:"total_users"`
	ActiveUsers   int64 `json:"active_users"`
	InactiveUsers int64 `json:"inactive_users"`
	AdminUsers    int64 `json:"admin_users"`
	VerifiedUsers int64 `json:"verified_users"`
	LockedUsers   int64 `json:"locked_users"`
}

// AdminService implements account administration. Callers must already
// have passed the admin gate; actorID is used for auditing and self-checks.
type AdminService struct {
	store  AdminStore
	hasher *pkgauth.Hasher
	audit  AuditSink
	logger *slog.Logger
	now    func() time.Time
}

// NewAdminService creates a new AdminService.
func NewAdminService(store AdminStore, hasher *pkgauth.Hasher, audit AuditSink, logger *slog.Logger) *AdminService {
	return &AdminService{store: store, hasher: hasher, audit: audit, logger: logger, now: time.Now}
}

// ListUsers returns one page of accounts, newest first
func (s *AdminService) ListUsers(ctx context.Context, actorID string, limit, offset int) ([]*models.User, error) {
	if limit <= 0 {
		limit = DefaultUserListLimit
	}
	if limit > MaxUserListLimit {
		limit = MaxUserListLimit
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.store.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, err
	}

	s.audit.Record(ctx, models.AuditEventAdminUserList, &actorID, map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	})
	return users, nil
}

// sameAccount reports whether two ids name one account. UUIDs compare by
// value, so case and brace variants of an id still match.
func sameAccount(a, b string) bool {
	ua, errA := uuid.Parse(a)
	ub, errB := uuid.Parse(b)
	if errA == nil && errB == nil {
		return ua == ub
	}
	return a == b
}

// ToggleAdmin flips the target's role between user and admin. Admins
// cannot change their own role. The change reaches the target's session
// only once they are issued a new token.
func (s *AdminService) ToggleAdmin(ctx context.Context, actorID, targetID string) (*models.User, error) {
	if sameAccount(actorID, targetID) {
		return nil, fmt.Errorf("%w: cannot change your own admin status", models.ErrBadRequest)
	}

	updated, err := s.store.ToggleRole(ctx, targetID)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditEventAdminRoleChanged, &actorID, map[string]string{
		"target_id": updated.ID,
		"role":      updated.Role,
	})
	return updated, nil
}

// ToggleActive enables or disables the target account. Admins cannot
// disable themselves.
func (s *AdminService) ToggleActive(ctx context.Context, actorID, targetID string) (*models.User, error) {
	if sameAccount(actorID, targetID) {
		return nil, fmt.Errorf("%w: cannot change your own active status", models.ErrBadRequest)
	}

	updated, err := s.store.ToggleActive(ctx, targetID)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditEventActiveChanged, &actorID, map[string]string{
		"target_id": updated.ID,
		"is_active": strconv.FormatBool(updated.IsActive),
	})
	return updated, nil
}

// CreateAdmin creates a verified admin account. The password policy applies.
func (s *AdminService) CreateAdmin(ctx context.Context, actorID string, in RegisterInput) (*models.User, error) {
	user, err := s.createAdmin(ctx, in)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditEventAdminCreated, &actorID, map[string]string{
		"target_id": user.ID,
		"email":     pkglogger.SanitizedEmail(user.Email),
	})
	return user, nil
}

// EnsureAdmin creates the bootstrap admin if no account uses its email.
// It returns whether an account was created.
func (s *AdminService) EnsureAdmin(ctx context.Context, in RegisterInput) (bool, error) {
	_, err := s.store.GetByEmail(ctx, normalizeEmail(in.Email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	user, err := s.createAdmin(ctx, in)
	if errors.Is(err, models.ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.audit.Record(ctx, models.AuditEventAdminCreated, nil, map[string]string{
		"target_id": user.ID,
		"source":    "bootstrap",
	})
	return true, nil
}

func (s *AdminService) createAdmin(ctx context.Context, in RegisterInput) (*models.User, error) {
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

	return s.store.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         models.RoleAdmin,
		IsActive:     true,
		IsVerified:   true,
	})
}

// Unlock clears a lock and the failed-attempt counter
func (s *AdminService) Unlock(ctx context.Context, actorID, targetID string) (*models.User, error) {
	updated, err := s.store.Unlock(ctx, targetID)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditEventAccountUnlocked, &targetID, map[string]string{
		"reason":   "admin",
		"actor_id": actorID,
	})
	return updated, nil
}

// Stats returns aggregate account counts
func (s *AdminService) Stats(ctx context.Context) (*DashboardStats, error) {
	stats, err := s.store.Stats(ctx, s.now())
	if err != nil {
		s.logger.Error("dashboard: failed to count users", slog.Any("error", err))
		return nil, err
	}

	return &DashboardStats{
		TotalUsers:    stats.Total,
		ActiveUsers:   stats.Active,
		InactiveUsers: stats.Total - stats.Active,
		AdminUsers:    stats.Admins,
		VerifiedUsers: stats.Verified,
		LockedUsers:   stats.Locked,
	}, nil
}
