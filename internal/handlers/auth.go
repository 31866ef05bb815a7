package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/rebelbudget/internal/auth"
	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/BradenHooton/rebelbudget/internal/services"
	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password, clientIP string) (*services.AuthResult, error)
	Me(ctx context.Context, claims *models.TokenClaims) (*models.User, error)
	Logout(ctx context.Context, claims *models.TokenClaims)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Register handles user registration
// @Summary User registration
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	res, err := h.service.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		WriteAuthError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, toAuthResponse(res))
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)

	res, err := h.service.Login(r.Context(), req.Email, req.Password, clientIP)
	if err != nil {
		WriteAuthError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toAuthResponse(res))
}

// Me returns the caller's stored profile
// @Summary Current user
// @Security BearerAuth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)

	user, err := h.service.Me(r.Context(), claims)
	if err != nil {
		WriteAuthError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// Logout records the logout. The token itself stays valid until it
// expires; the client is expected to discard it.
// @Summary User logout
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	h.service.Logout(r.Context(), claims)
	w.WriteHeader(http.StatusNoContent)
}
