package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/models"
	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultAuditTrailLimit = 50
	maxAuditTrailLimit     = 100
)

// AuditReader reads persisted audit events
type AuditReader interface {
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]*models.AuditLog, error)
	CountSince(ctx context.Context, eventType string, since time.Time) (int64, error)
}

// AuditHandler serves the admin view of the audit log
type AuditHandler struct {
	reader AuditReader
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(reader AuditReader, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{reader: reader, logger: logger, now: time.Now}
}

// AuditLogResponse represents an audit log entry in HTTP response
type AuditLogResponse struct {
	ID        string            `json:"id"`
	EventType string            `json:"event_type"`
	SubjectID *string           `json:"subject_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// SecuritySummaryResponse counts security events over the last day
type SecuritySummaryResponse struct {
	Since          time.Time `json:"since"`
	FailedLogins   int64     `json:"failed_logins"`
	AccountsLocked int64     `json:"accounts_locked"`
	RateLimited    int64     `json:"rate_limited"`
	Forbidden      int64     `json:"forbidden"`
}

// GetUserAuditTrail handles GET /admin/users/{id}/audit?limit=N
func (h *AuditHandler) GetUserAuditTrail(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(userID); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid user id")
		return
	}

	limit := queryInt(r, "limit", defaultAuditTrailLimit)
	if limit <= 0 || limit > maxAuditTrailLimit {
		limit = defaultAuditTrailLimit
	}

	logs, err := h.reader.ListBySubject(r.Context(), userID, limit)
	if err != nil {
		WriteAuthError(w, r, h.logger, err)
		return
	}

	response := make([]AuditLogResponse, len(logs))
	for i, log := range logs {
		response[i] = AuditLogResponse{
			ID:        log.ID,
			EventType: log.EventType,
			SubjectID: log.SubjectID,
			Details:   log.Details,
			CreatedAt: log.CreatedAt,
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  response,
		"limit": limit,
	})
}

// GetSecuritySummary handles GET /admin/security/summary
func (h *AuditHandler) GetSecuritySummary(w http.ResponseWriter, r *http.Request) {
	since := h.now().Add(-24 * time.Hour)
	summary := SecuritySummaryResponse{Since: since}

	counts := []struct {
		eventType string
		dst       *int64
	}{
		{models.AuditEventLoginFailed, &summary.FailedLogins},
		{models.AuditEventAccountLocked, &summary.AccountsLocked},
		{models.AuditEventRateLimited, &summary.RateLimited},
		{models.AuditEventForbidden, &summary.Forbidden},
	}
	for _, c := range counts {
		n, err := h.reader.CountSince(r.Context(), c.eventType, since)
		if err != nil {
			WriteAuthError(w, r, h.logger, err)
			return
		}
		*c.dst = n
	}

	pkghttp.WriteJSON(w, http.StatusOK, summary)
}
