package ingest

import (
	"context"

	"facility-checklist/internal/models"
)

// LocalPublisher applies events in process. It is used when no NATS server is configured.
type LocalPublisher struct {
	processor *Processor
}

func NewLocalPublisher(p *Processor) *LocalPublisher {
	return &LocalPublisher{processor: p}
}

func (l *LocalPublisher) PublishInspectionEvent(ctx context.Context, ev *models.InspectionEvent) error {
	return l.processor.Process(context.WithoutCancel(ctx), ev)
}
