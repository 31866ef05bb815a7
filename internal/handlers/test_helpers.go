package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/auth"
	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/BradenHooton/rebelbudget/internal/services"
	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email, role string) *http.Request {
	claims := &models.TokenClaims{Email: email, Role: role}
	claims.Subject = userID
	claims.ID = "test-jti"
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc func(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	LoginFunc    func(ctx context.Context, email, password, clientIP string) (*services.AuthResult, error)
	MeFunc       func(ctx context.Context, claims *models.TokenClaims) (*models.User, error)
	LogoutFunc   func(ctx context.Context, claims *models.TokenClaims)
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrEmailTaken
	}
	return m.RegisterFunc(ctx, in)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, clientIP string) (*services.AuthResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, email, password, clientIP)
}

func (m *MockAuthService) Me(ctx context.Context, claims *models.TokenClaims) (*models.User, error) {
	if m.MeFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.MeFunc(ctx, claims)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *models.TokenClaims) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, claims)
	}
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	ListUsersFunc    func(ctx context.Context, actorID string, limit, offset int) ([]*models.User, error)
	ToggleAdminFunc  func(ctx context.Context, actorID, targetID string) (*models.User, error)
	ToggleActiveFunc func(ctx context.Context, actorID, targetID string) (*models.User, error)
	CreateAdminFunc  func(ctx context.Context, actorID string, in services.RegisterInput) (*models.User, error)
	UnlockFunc       func(ctx context.Context, actorID, targetID string) (*models.User, error)
	StatsFunc        func(ctx context.Context) (*services.DashboardStats, error)
}

func (m *MockAdminService) ListUsers(ctx context.Context, actorID string, limit, offset int) ([]*models.User, error) {
	if m.ListUsersFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListUsersFunc(ctx, actorID, limit, offset)
}

func (m *MockAdminService) ToggleAdmin(ctx context.Context, actorID, targetID string) (*models.User, error) {
	if m.ToggleAdminFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ToggleAdminFunc(ctx, actorID, targetID)
}

func (m *MockAdminService) ToggleActive(ctx context.Context, actorID, targetID string) (*models.User, error) {
	if m.ToggleActiveFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ToggleActiveFunc(ctx, actorID, targetID)
}

func (m *MockAdminService) CreateAdmin(ctx context.Context, actorID string, in services.RegisterInput) (*models.User, error) {
	if m.CreateAdminFunc == nil {
		return nil, models.ErrEmailTaken
	}
	return m.CreateAdminFunc(ctx, actorID, in)
}

func (m *MockAdminService) Unlock(ctx context.Context, actorID, targetID string) (*models.User, error) {
	if m.UnlockFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UnlockFunc(ctx, actorID, targetID)
}

func (m *MockAdminService) Stats(ctx context.Context) (*services.DashboardStats, error) {
	if m.StatsFunc == nil {
		return &services.DashboardStats{}, nil
	}
	return m.StatsFunc(ctx)
}

// NewTestUser returns an active account with fixed timestamps
func NewTestUser(id, email, role string) *models.User {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.User{
		ID:        id,
		Email:     email,
		FullName:  "Test User",
		Role:      role,
		IsActive:  true,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// WithChiRouteContext adds chi URL parameters to request context for testing
// This helper allows tests to set URL parameters that would normally be extracted
// by the Chi router from the URL path.
//
// Example usage:
//
//	req := httptest.NewRequest("PATCH", "/admin/users/<uuid>/admin", nil)
//	req = WithChiRouteContext(req, map[string]string{
//	    "id": "<uuid>",
//	})
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
