package handlers

import (
	"time"

	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/BradenHooton/rebelbudget/internal/services"
)

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// RegisterRequest represents the request body for registration. The
// password policy is enforced by the service, not the validator.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"omitempty,max=100"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AdminUserResponse adds lockout state for administrators
type AdminUserResponse struct {
	UserResponse
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"locked_until,omitempty"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
	}
}

func toAdminUserResponse(u *models.User) AdminUserResponse {
	return AdminUserResponse{
		UserResponse:        toUserResponse(u),
		FailedLoginAttempts: u.FailedLoginAttempts,
		LockedUntil:         u.LockedUntil,
	}
}

func toAuthResponse(res *services.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken: res.Token,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt,
		User:        toUserResponse(res.User),
	}
}
