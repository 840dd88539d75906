package natsbus

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"

	"facility-checklist/internal/models"
)

// Publisher writes inspection events to JetStream. The event id doubles as the
// JetStream message id so retried publishes are deduplicated by the server.
type Publisher struct {
	js nats.JetStreamContext
}

func NewPublisher(js nats.JetStreamContext) *Publisher {
	return &Publisher{js: js}
}

func (p *Publisher) PublishInspectionEvent(ctx context.Context, ev *models.InspectionEvent) error {
	data, err := msgpack.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := p.js.Publish(Subject(ev.Action), data, nats.MsgId(ev.ID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", Subject(ev.Action), err)
	}
	return nil
}
