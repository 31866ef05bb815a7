package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper drops idle rate limiter keys and returns how many were removed
type Sweeper interface {
	Sweep() int
}

// AuditPruner deletes audit rows older than cutoff
type AuditPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupManager periodically sweeps idle limiter keys and prunes old audit logs
type CleanupManager struct {
	limiter   Sweeper
	audit     AuditPruner
	retention time.Duration
	logger    *slog.Logger
	interval  time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewCleanupManager creates a new cleanup manager. audit may be nil, and a
// zero retention keeps audit rows forever.
func NewCleanupManager(
	limiter Sweeper,
	audit AuditPruner,
	retention time.Duration,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		limiter:   limiter,
		audit:     audit,
		retention: retention,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce performs a single cleanup pass
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	if cm.limiter != nil {
		if removed := cm.limiter.Sweep(); removed > 0 {
			cm.logger.Debug("rate limiter sweep completed", slog.Int("keys_removed", removed))
		}
	}

	if cm.audit == nil || cm.retention <= 0 {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := cm.now().Add(-cm.retention)
	rowsDeleted, err := cm.audit.DeleteOlderThan(cleanupCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to prune audit logs", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("audit log pruning completed",
			slog.Int64("rows_deleted", rowsDeleted),
			slog.Time("cutoff", cutoff))
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
