package logger

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// AuditLogger writes security audit events as structured log records
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// failureEvents are logged at warn level
var failureEvents = map[string]bool{
	"login_failed":   true,
	"account_locked": true,
	"auth_error":     true,
	"forbidden":      true,
	"rate_limited":   true,
}

// Record logs a single audit event. It never fails.
func (al *AuditLogger) Record(ctx context.Context, eventType string, subjectID *string, details map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_type", eventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if subjectID != nil {
		attrs = append(attrs, slog.String("subject_id", *subjectID))
	}

	keys := make([]string, 0, len(details))
	for key := range details {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		attrs = append(attrs, slog.String(key, details[key]))
	}

	level := slog.LevelInfo
	if failureEvents[eventType] {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
