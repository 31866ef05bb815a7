package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BradenHooton/rebelbudget/internal/handlers"
	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/BradenHooton/rebelbudget/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID  = "5f0c6d1e-3b1a-4c55-9a35-2f1b7b8f0a01"
	targetID = "9a7e2c44-8d7b-4f0e-b1d2-6c3e5a4f9b02"
)

func adminRequest(method, url string) *http.Request {
	return handlers.WithAuthContext(httptest.NewRequest(method, url, nil), adminID, "root@example.com", models.RoleAdmin)
}

// ── ListUsers ────────────────────────────────────────────────────────────────

func TestListUsers_PassesPagingAndActor(t *testing.T) {
	var gotActor string
	var gotLimit, gotOffset int
	mock := &handlers.MockAdminService{
		ListUsersFunc: func(ctx context.Context, actorID string, limit, offset int) ([]*models.User, error) {
			gotActor, gotLimit, gotOffset = actorID, limit, offset
			return []*models.User{handlers.NewTestUser(targetID, "a@example.com", models.RoleUser)}, nil
		},
	}
	h := handlers.NewAdminHandler(mock, testLogger())

	w := httptest.NewRecorder()
	h.ListUsers(w, adminRequest("GET", "/admin/users?limit=10&offset=20"))

	var resp handlers.UserListResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, targetID, resp.Users[0].ID)
	assert.Equal(t, adminID, gotActor)
	assert.Equal(t, 10, gotLimit)
	assert.Equal(t, 20, gotOffset)
}

func TestListUsers_ClampsPaging(t *testing.T) {
	h := handlers.NewAdminHandler(&handlers.MockAdminService{}, testLogger())

	w := httptest.NewRecorder()
	h.ListUsers(w, adminRequest("GET", "/admin/users?limit=5000&offset=-4"))

	var resp handlers.UserListResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, services.MaxUserListLimit, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
	assert.NotNil(t, resp.Users)
}

// ── Toggle / Unlock ──────────────────────────────────────────────────────────

func TestToggleAdmin_Success(t *testing.T) {
	mock := &handlers.MockAdminService{
		ToggleAdminFunc: func(ctx context.Context, actorID, id string) (*models.User, error) {
			return handlers.NewTestUser(id, "a@example.com", models.RoleAdmin), nil
		},
	}
	h := handlers.NewAdminHandler(mock, testLogger())

	req := handlers.WithChiRouteContext(adminRequest("PATCH", "/admin/users/"+targetID+"/admin"), map[string]string{"id": targetID})
	w := httptest.NewRecorder()
	h.ToggleAdmin(w, req)

	var resp handlers.AdminUserResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, models.RoleAdmin, resp.Role)
}

func TestToggleAdmin_InvalidID(t *testing.T) {
	h := handlers.NewAdminHandler(&handlers.MockAdminService{}, testLogger())

	req := handlers.WithChiRouteContext(adminRequest("PATCH", "/admin/users/nope/admin"), map[string]string{"id": "nope"})
	w := httptest.NewRecorder()
	h.ToggleAdmin(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestToggleActive_Self(t *testing.T) {
	mock := &handlers.MockAdminService{
		ToggleActiveFunc: func(ctx context.Context, actorID, id string) (*models.User, error) {
			return nil, models.ErrBadRequest
		},
	}
	h := handlers.NewAdminHandler(mock, testLogger())

	req := handlers.WithChiRouteContext(adminRequest("PATCH", "/admin/users/"+adminID+"/active"), map[string]string{"id": adminID})
	w := httptest.NewRecorder()
	h.ToggleActive(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestToggleActive_PassesCanonicalID(t *testing.T) {
	var gotID string
	mock := &handlers.MockAdminService{
		ToggleActiveFunc: func(ctx context.Context, actorID, id string) (*models.User, error) {
			gotID = id
			return handlers.NewTestUser(id, "a@example.com", models.RoleUser), nil
		},
	}
	h := handlers.NewAdminHandler(mock, testLogger())

	for _, raw := range []string{strings.ToUpper(targetID), "{" + targetID + "}", "urn:uuid:" + targetID} {
		t.Run(raw, func(t *testing.T) {
			gotID = ""
			req := handlers.WithChiRouteContext(adminRequest("PATCH", "/admin/users/x/active"), map[string]string{"id": raw})
			w := httptest.NewRecorder()
			h.ToggleActive(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, targetID, gotID)
		})
	}
}

func TestUnlock_NotFound(t *testing.T) {
	h := handlers.NewAdminHandler(&handlers.MockAdminService{}, testLogger())

	req := handlers.WithChiRouteContext(adminRequest("POST", "/admin/users/"+targetID+"/unlock"), map[string]string{"id": targetID})
	w := httptest.NewRecorder()
	h.Unlock(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}

// ── CreateAdmin ──────────────────────────────────────────────────────────────

func TestCreateAdmin(t *testing.T) {
	var gotIn services.RegisterInput
	mock := &handlers.MockAdminService{
		CreateAdminFunc: func(ctx context.Context, actorID string, in services.RegisterInput) (*models.User, error) {
			gotIn = in
			return handlers.NewTestUser(targetID, in.Email, models.RoleAdmin), nil
		},
	}
	h := handlers.NewAdminHandler(mock, testLogger())

	req := handlers.NewTestRequest(t, "POST", "/admin/users", handlers.RegisterRequest{
		Email: "ops@example.com", Password: "long-enough-pw", FullName: "Ops",
	})
	req = handlers.WithAuthContext(req, adminID, "root@example.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	h.CreateAdmin(w, req)

	var resp handlers.AdminUserResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "ops@example.com", gotIn.Email)
	assert.Equal(t, models.RoleAdmin, resp.Role)
}

// ── Stats ────────────────────────────────────────────────────────────────────

func TestGetDashboardStats_Success_Returns200(t *testing.T) {
	mock := &handlers.MockAdminService{
		StatsFunc: func(ctx context.Context) (*services.DashboardStats, error) {
			return &services.DashboardStats{TotalUsers: 100, ActiveUsers: 80, InactiveUsers: 20, AdminUsers: 3, LockedUsers: 2}, nil
		},
	}
	h := handlers.NewAdminHandler(mock, testLogger())

	w := httptest.NewRecorder()
	h.GetDashboardStats(w, adminRequest("GET", "/admin/stats"))

	var resp services.DashboardStats
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, int64(100), resp.TotalUsers)
	assert.Equal(t, int64(2), resp.LockedUsers)
}

func TestGetDashboardStats_ServiceError_Returns500(t *testing.T) {
	mock := &handlers.MockAdminService{
		StatsFunc: func(ctx context.Context) (*services.DashboardStats, error) {
			return nil, errors.New("database connection lost")
		},
	}
	h := handlers.NewAdminHandler(mock, testLogger())

	w := httptest.NewRecorder()
	h.GetDashboardStats(w, adminRequest("GET", "/admin/stats"))

	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
}

// ── Health ───────────────────────────────────────────────────────────────────

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.Health(pingerFunc(func(context.Context) error { return nil }))(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handlers.Health(pingerFunc(func(context.Context) error { return errors.New("down") }))(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
