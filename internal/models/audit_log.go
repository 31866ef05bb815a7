package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Event types for audit logging
const (
	AuditEventRegistered       = "user_registered"
	AuditEventLoginSuccess     = "login_success"
	AuditEventLoginFailed      = "login_failed"
	AuditEventAccountLocked    = "account_locked"
	AuditEventAccountUnlocked  = "account_unlocked"
	AuditEventLogout           = "logout"
	AuditEventAuthError        = "auth_error"
	AuditEventForbidden        = "forbidden"
	AuditEventRateLimited      = "rate_limited"
	AuditEventAdminUserList    = "admin_user_list"
	AuditEventAdminRoleChanged = "admin_status_changed"
	AuditEventActiveChanged    = "user_status_changed"
	AuditEventAdminCreated     = "admin_user_created"
)

type AuditLog struct {
	ID        string        `db:"id"`
	EventType string        `db:"event_type"`
	SubjectID *string       `db:"subject_id"`
	Details   AuditMetadata `db:"details"`
	CreatedAt time.Time     `db:"created_at"`
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]string

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(AuditMetadata)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return ErrBadRequest
	}

	m := make(map[string]string)
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(am))
}
