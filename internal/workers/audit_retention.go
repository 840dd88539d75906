package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AuditPruner is the storage the retention worker needs.
type AuditPruner interface {
	PruneAudit(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartAuditRetention periodically deletes audit entries older than retention.
// It runs one pass immediately and stops when ctx is cancelled.
func StartAuditRetention(ctx context.Context, store AuditPruner, retention, interval time.Duration, log *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		pruneOnce(ctx, store, time.Now, retention, log)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pruneOnce(ctx, store, time.Now, retention, log)
			}
		}
	}()
	log.Info("Audit retention worker started", zap.Duration("retention", retention), zap.Duration("interval", interval))
}

func pruneOnce(ctx context.Context, store AuditPruner, now func() time.Time, retention time.Duration, log *zap.Logger) int64 {
	cutoff := now().Add(-retention)
	removed, err := store.PruneAudit(ctx, cutoff)
	if err != nil {
		log.Warn("Audit retention prune failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		log.Info("Pruned audit entries", zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	}
	return removed
}
