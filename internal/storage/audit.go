package storage

import (
	"context"
	"time"

	"facility-checklist/internal/models"
)

const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 500
)

// RecordAudit stores an applied event. Replaying an event id is a no-op, which
// keeps at-least-once delivery from duplicating rows.
func (s *Storage) RecordAudit(ctx context.Context, entry models.AuditEntry) error {
	query := s.db.Rebind(`
		INSERT INTO audit_logs (event_id, action, inspection_id, actor, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING
	`)
	_, err := s.db.ExecContext(ctx, query,
		entry.EventID, entry.Action, entry.InspectionID, entry.Actor, entry.Details, entry.CreatedAt.UTC())
	return mapError(err)
}

func (s *Storage) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}

	entries := []models.AuditEntry{}
	query := s.db.Rebind(`
		SELECT id, event_id, action, inspection_id, actor, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	if err := s.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, err
	}
	return entries, nil
}

// PruneAudit deletes entries created before cutoff and returns how many went.
func (s *Storage) PruneAudit(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM audit_logs WHERE created_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
