package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/models"
)

// auditWriteTimeout bounds the database write so a slow store cannot hold a request
const auditWriteTimeout = 3 * time.Second

// AuditSink records security events. Implementations must not fail the caller.
type AuditSink interface {
	Record(ctx context.Context, eventType string, subjectID *string, details map[string]string)
}

// AuditLogRepository persists audit events
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
}

// AuditService handles audit logging with dual-write pattern (slog + database)
type AuditService struct {
	log    AuditSink
	repo   AuditLogRepository
	logger *slog.Logger
}

// NewAuditService creates a new AuditService. log writes the structured
// line; repo may be nil to skip persistence.
func NewAuditService(log AuditSink, repo AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{log: log, repo: repo, logger: logger}
}

// Record writes the event to the log and then to the database. Database
// failures are logged and swallowed. The write survives cancellation of ctx
// so an aborted request still leaves its audit trail.
func (s *AuditService) Record(ctx context.Context, eventType string, subjectID *string, details map[string]string) {
	s.log.Record(ctx, eventType, subjectID, details)

	if s.repo == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	entry := &models.AuditLog{
		EventType: eventType,
		SubjectID: subjectID,
		Details:   models.AuditMetadata(details),
	}
	if _, err := s.repo.Create(writeCtx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("event_type", eventType),
			slog.Any("error", err),
		)
	}
}
