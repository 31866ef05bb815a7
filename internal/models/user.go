package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	FullName            string
	Role                string // "user" or "admin"
	IsActive            bool
	IsVerified          bool
	FailedLoginAttempts int
	LockedUntil         *time.Time // Temporary lock expiration, nil when unlocked
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsAdmin reports whether the stored role grants admin access.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// UserStats aggregates account counts for the admin dashboard
type UserStats struct {
	Total    int64
	Active   int64
	Admins   int64
	Verified int64
	Locked   int64
}
