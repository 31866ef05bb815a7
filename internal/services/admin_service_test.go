package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/BradenHooton/rebelbudget/internal/services"
	pkgauth "github.com/BradenHooton/rebelbudget/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAdminService(store *services.MockAccountStore) (*services.AdminService, *services.RecordingAuditSink) {
	audit := &services.RecordingAuditSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return services.NewAdminService(store, pkgauth.NewHasher(bcrypt.MinCost), audit, logger), audit
}

// ── ListUsers ────────────────────────────────────────────────────────────────

func TestAdminService_ListUsers_ClampsPaging(t *testing.T) {
	tests := []struct {
		name                  string
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{"defaults", 0, 0, services.DefaultUserListLimit, 0},
		{"within range", 10, 20, 10, 20},
		{"limit capped", 10_000, 0, services.MaxUserListLimit, 0},
		{"negative offset", 5, -3, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit, gotOffset int
			store := &services.MockAccountStore{
				ListFunc: func(ctx context.Context, limit, offset int) ([]*models.User, error) {
					gotLimit, gotOffset = limit, offset
					return []*models.User{services.NewTestUser("u1", "a@example.com", "h")}, nil
				},
			}
			svc, audit := newAdminService(store)

			users, err := svc.ListUsers(context.Background(), "admin-1", tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Len(t, users, 1)
			assert.Equal(t, tt.wantLimit, gotLimit)
			assert.Equal(t, tt.wantOffset, gotOffset)
			assert.Equal(t, 1, audit.Count(models.AuditEventAdminUserList))
		})
	}
}

func TestAdminService_ListUsers_StoreError(t *testing.T) {
	store := &services.MockAccountStore{
		ListFunc: func(ctx context.Context, limit, offset int) ([]*models.User, error) {
			return nil, errors.New("db down")
		},
	}
	svc, audit := newAdminService(store)

	_, err := svc.ListUsers(context.Background(), "admin-1", 10, 0)
	assert.Error(t, err)
	assert.Equal(t, 0, audit.Count(models.AuditEventAdminUserList))
}

// ── ToggleAdmin / ToggleActive ───────────────────────────────────────────────

func TestAdminService_ToggleAdmin(t *testing.T) {
	store := services.NewMemoryAccountStore()
	store.Put(services.NewTestUser("u2", "b@example.com", "h"))
	svc, audit := newAdminService(&services.MockAccountStore{ToggleRoleFunc: store.ToggleRole})

	updated, err := svc.ToggleAdmin(context.Background(), "admin-1", "u2")
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin())

	event, ok := audit.Last(models.AuditEventAdminRoleChanged)
	require.True(t, ok)
	assert.Equal(t, "u2", event.Details["target_id"])
	assert.Equal(t, models.RoleAdmin, event.Details["role"])

	updated, err = svc.ToggleAdmin(context.Background(), "admin-1", "u2")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, updated.Role)
}

func TestAdminService_ToggleAdmin_Self(t *testing.T) {
	svc, _ := newAdminService(&services.MockAccountStore{})

	_, err := svc.ToggleAdmin(context.Background(), "admin-1", "admin-1")
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.ToggleActive(context.Background(), "admin-1", "admin-1")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAdminService_Toggle_SelfInOtherUUIDForm(t *testing.T) {
	const self = "3f1c2b9e-8d4a-4c6b-9e2f-1a2b3c4d5e6f"
	variants := []string{
		strings.ToUpper(self),
		"{" + self + "}",
		"urn:uuid:" + self,
	}

	var writes int
	store := &services.MockAccountStore{
		ToggleRoleFunc: func(ctx context.Context, id string) (*models.User, error) {
			writes++
			return nil, models.ErrNotFound
		},
		ToggleActiveFunc: func(ctx context.Context, id string) (*models.User, error) {
			writes++
			return nil, models.ErrNotFound
		},
	}
	svc, _ := newAdminService(store)

	for _, target := range variants {
		t.Run(target, func(t *testing.T) {
			_, err := svc.ToggleActive(context.Background(), self, target)
			assert.ErrorIs(t, err, models.ErrBadRequest)

			_, err = svc.ToggleAdmin(context.Background(), self, target)
			assert.ErrorIs(t, err, models.ErrBadRequest)
		})
	}
	assert.Zero(t, writes)
}

func TestAdminService_ToggleAdmin_NotFound(t *testing.T) {
	svc, _ := newAdminService(&services.MockAccountStore{})

	_, err := svc.ToggleAdmin(context.Background(), "admin-1", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAdminService_ToggleActive(t *testing.T) {
	store := services.NewMemoryAccountStore()
	store.Put(services.NewTestUser("u2", "b@example.com", "h"))
	svc, audit := newAdminService(&services.MockAccountStore{ToggleActiveFunc: store.ToggleActive})

	updated, err := svc.ToggleActive(context.Background(), "admin-1", "u2")
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	event, ok := audit.Last(models.AuditEventActiveChanged)
	require.True(t, ok)
	assert.Equal(t, "false", event.Details["is_active"])
}

func TestAdminService_ToggleActive_ConcurrentTogglesAllApply(t *testing.T) {
	store := services.NewMemoryAccountStore()
	store.Put(services.NewTestUser("u2", "b@example.com", "h"))
	svc, audit := newAdminService(&services.MockAccountStore{ToggleActiveFunc: store.ToggleActive})

	const toggles = 9
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ToggleActive(context.Background(), "admin-1", "u2")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// An odd number of flips ends disabled.
	stored, err := store.GetByID(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, toggles, audit.Count(models.AuditEventActiveChanged))
}

// ── CreateAdmin / EnsureAdmin ────────────────────────────────────────────────

func TestAdminService_CreateAdmin(t *testing.T) {
	var created *models.User
	store := &services.MockAccountStore{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			created = user
			u := *user
			u.ID = "new-admin"
			return &u, nil
		},
	}
	svc, audit := newAdminService(store)

	user, err := svc.CreateAdmin(context.Background(), "admin-1", services.RegisterInput{
		Email: " Ops@Example.com", Password: "long-enough-pw", FullName: "Ops",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-admin", user.ID)
	assert.Equal(t, "ops@example.com", created.Email)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.True(t, created.IsActive)
	assert.True(t, created.IsVerified)
	assert.NotEqual(t, "long-enough-pw", created.PasswordHash)
	assert.Equal(t, 1, audit.Count(models.AuditEventAdminCreated))
}

func TestAdminService_CreateAdmin_Rejections(t *testing.T) {
	store := &services.MockAccountStore{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			return nil, models.ErrEmailTaken
		},
	}
	svc, _ := newAdminService(store)

	_, err := svc.CreateAdmin(context.Background(), "admin-1", services.RegisterInput{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, models.ErrWeakPassword)

	_, err = svc.CreateAdmin(context.Background(), "admin-1", services.RegisterInput{Email: " ", Password: "long-enough-pw"})
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.CreateAdmin(context.Background(), "admin-1", services.RegisterInput{Email: "a@example.com", Password: "long-enough-pw"})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestAdminService_EnsureAdmin(t *testing.T) {
	store := services.NewMemoryAccountStore()
	mock := &services.MockAccountStore{
		GetByEmailFunc: store.GetByEmail,
		CreateFunc:     store.Create,
	}
	svc, audit := newAdminService(mock)
	in := services.RegisterInput{Email: "root@example.com", Password: "bootstrap-pass"}

	created, err := svc.EnsureAdmin(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created, "second run finds the existing account")
	assert.Equal(t, 1, audit.Count(models.AuditEventAdminCreated))

	user, err := store.GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
}

func TestAdminService_EnsureAdmin_LookupError(t *testing.T) {
	store := &services.MockAccountStore{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, errors.New("db down")
		},
	}
	svc, _ := newAdminService(store)

	_, err := svc.EnsureAdmin(context.Background(), services.RegisterInput{Email: "root@example.com", Password: "bootstrap-pass"})
	assert.Error(t, err)
}

// ── Unlock / Stats ───────────────────────────────────────────────────────────

func TestAdminService_Unlock(t *testing.T) {
	store := &services.MockAccountStore{
		UnlockFunc: func(ctx context.Context, id string) (*models.User, error) {
			return services.NewTestUser(id, "locked@example.com", "h"), nil
		},
	}
	svc, audit := newAdminService(store)

	user, err := svc.Unlock(context.Background(), "admin-1", "u9")
	require.NoError(t, err)
	assert.Equal(t, "u9", user.ID)

	event, ok := audit.Last(models.AuditEventAccountUnlocked)
	require.True(t, ok)
	require.NotNil(t, event.SubjectID)
	assert.Equal(t, "u9", *event.SubjectID)
	assert.Equal(t, "admin", event.Details["reason"])
	assert.Equal(t, "admin-1", event.Details["actor_id"])
}

func TestAdminService_Stats(t *testing.T) {
	store := &services.MockAccountStore{
		StatsFunc: func(ctx context.Context, now time.Time) (*models.UserStats, error) {
			return &models.UserStats{Total: 10, Active: 7, Admins: 2, Verified: 4, Locked: 1}, nil
		},
	}
	svc, _ := newAdminService(store)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, services.DashboardStats{
		TotalUsers: 10, ActiveUsers: 7, InactiveUsers: 3, AdminUsers: 2, VerifiedUsers: 4, LockedUsers: 1,
	}, *stats)
}

func TestAdminService_Stats_Error(t *testing.T) {
	store := &services.MockAccountStore{
		StatsFunc: func(ctx context.Context, now time.Time) (*models.UserStats, error) {
			return nil, errors.New("db down")
		},
	}
	svc, _ := newAdminService(store)

	_, err := svc.Stats(context.Background())
	assert.Error(t, err)
}
