package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BradenHooton/rebelbudget/internal/auth"
	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/BradenHooton/rebelbudget/internal/services"
	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AdminServiceInterface defines the account administration contract.
type AdminServiceInterface interface {
	ListUsers(ctx context.Context, actorID string, limit, offset int) ([]*models.User, error)
	ToggleAdmin(ctx context.Context, actorID, targetID string) (*models.User, error)
	ToggleActive(ctx context.Context, actorID, targetID string) (*models.User, error)
	CreateAdmin(ctx context.Context, actorID string, in services.RegisterInput) (*models.User, error)
	Unlock(ctx context.Context, actorID, targetID string) (*models.User, error)
	Stats(ctx context.Context) (*services.DashboardStats, error)
}

// AdminHandler handles admin HTTP requests. Routes are mounted behind
// auth.RequireAdminRole.
type AdminHandler struct {
	service AdminServiceInterface
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminServiceInterface, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: service, logger: logger}
}

// UserListResponse is one page of accounts
type UserListResponse struct {
	Users  []AdminUserResponse `json:"users"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// ListUsers handles GET /admin/users?limit=N&offset=M
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit := queryInt(r, "limit", services.DefaultUserListLimit)
	if limit <= 0 || limit > services.MaxUserListLimit {
		limit = min(max(limit, services.DefaultUserListLimit), services.MaxUserListLimit)
	}
	offset := max(queryInt(r, "offset", 0), 0)

	users, err := h.service.ListUsers(r.Context(), claims.Subject, limit, offset)
	if err != nil {
		WriteAuthError(w, r, h.logger, err)
		return
	}

	resp := UserListResponse{Users: make([]AdminUserResponse, 0, len(users)), Limit: limit, Offset: offset}
	for _, u := range users {
		resp.Users = append(resp.Users, toAdminUserResponse(u))
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// CreateAdmin handles POST /admin/users
func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req RegisterRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.CreateAdmin(r.Context(), claims.Subject, services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		WriteAuthError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, toAdminUserResponse(user))
}

// ToggleAdmin handles PATCH /admin/users/{id}/admin
func (h *AdminHandler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	h.updateUser(w, r, h.service.ToggleAdmin)
}

// ToggleActive handles PATCH /admin/users/{id}/active
func (h *AdminHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	h.updateUser(w, r, h.service.ToggleActive)
}

// Unlock handles POST /admin/users/{id}/unlock
func (h *AdminHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.updateUser(w, r, h.service.Unlock)
}

func (h *AdminHandler) updateUser(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID, targetID string) (*models.User, error)) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid user id")
		return
	}

	user, err := op(r.Context(), claims.Subject, targetID.String())
	if err != nil {
		WriteAuthError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toAdminUserResponse(user))
}

// GetDashboardStats handles GET /admin/stats
func (h *AdminHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve dashboard stats")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
