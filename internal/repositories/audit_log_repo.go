package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/database"
	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditColumns = `id::text, event_type, subject_id::text, details, created_at`

// AuditLogRepository handles audit log data access
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

func scanAuditLogRow(row rowScanner) (*models.AuditLog, error) {
	var log models.AuditLog

	err := row.Scan(&log.ID, &log.EventType, &log.SubjectID, &log.Details, &log.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &log, nil
}

func scanAuditLogRows(rows pgx.Rows) ([]*models.AuditLog, error) {
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)

	for rows.Next() {
		log, err := scanAuditLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

// Create creates a new audit log entry
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	query := `
		INSERT INTO audit_logs (event_type, subject_id, details)
		VALUES ($1, $2, $3)
		RETURNING ` + auditColumns

	result, err := scanAuditLogRow(r.pool.QueryRow(ctx, query, log.EventType, log.SubjectID, log.Details))
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	return result, nil
}

// ListBySubject returns the most recent events for one account
func (r *AuditLogRepository) ListBySubject(ctx context.Context, subjectID string, limit int) ([]*models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs
		WHERE subject_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	return scanAuditLogRows(rows)
}

// CountSince counts events of eventType recorded at or after since
func (r *AuditLogRepository) CountSince(ctx context.Context, eventType string, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE event_type = $1 AND created_at >= $2`,
		eventType, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes events recorded before cutoff and returns how many were deleted
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
