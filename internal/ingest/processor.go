package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"facility-checklist/internal/models"
)

type AuditWriter interface {
	RecordAudit(ctx context.Context, entry models.AuditEntry) error
}

type Broadcaster interface {
	Broadcast(update models.LiveUpdate)
}

type Notifier interface {
	NotifyInspection(ctx context.Context, ev *models.InspectionEvent, rec *models.Inspection) error
}

// Processor applies an inspection event: audit row first, then live push and
// webhook notification. Only the audit write can fail the event.
type Processor struct {
	audit    AuditWriter
	hub      Broadcaster
	notifier Notifier
	log      *zap.Logger
}

func NewProcessor(audit AuditWriter, hub Broadcaster, notifier Notifier, log *zap.Logger) *Processor {
	return &Processor{audit: audit, hub: hub, notifier: notifier, log: log}
}

func (p *Processor) Process(ctx context.Context, ev *models.InspectionEvent) error {
	if ev.ID == "" || ev.Action == "" {
		return fmt.Errorf("event missing id or action")
	}

	entry := models.AuditEntry{
		EventID:      ev.ID,
		Action:       ev.Action,
		InspectionID: ev.InspectionID,
		Actor:        ev.Actor,
		Details:      models.Snapshot(ev.Snapshot),
		CreatedAt:    ev.Time(),
	}
	if err := p.audit.RecordAudit(ctx, entry); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}

	if p.hub != nil {
		p.hub.Broadcast(ev.LiveUpdate())
	}

	if p.notifier != nil {
		if err := p.notifier.NotifyInspection(ctx, ev, ev.Inspection()); err != nil {
			p.log.Warn("inspection notification failed", zap.String("event", ev.ID), zap.Error(err))
		}
	}

	p.log.Info("Inspection event applied",
		zap.String("event", ev.ID),
		zap.String("action", ev.Action),
		zap.Int64("inspection_id", ev.InspectionID),
		zap.String("actor", ev.Actor))
	return nil
}
