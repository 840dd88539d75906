package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"facility-checklist/internal/models"
	"facility-checklist/internal/natsbus"
)

const consumerName = "audit-writer"

var errTerminated = errors.New("message terminated")

// EventsConsumer pulls inspection events from JetStream and applies them.
type EventsConsumer struct {
	js        nats.JetStreamContext
	processor *Processor
	sub       *nats.Subscription
	log       *zap.Logger
	done      chan struct{}
}

func NewEventsConsumer(js nats.JetStreamContext, processor *Processor, log *zap.Logger) *EventsConsumer {
	return &EventsConsumer{js: js, processor: processor, log: log, done: make(chan struct{})}
}

// Start begins consuming events from JetStream.
func (c *EventsConsumer) Start(ctx context.Context) error {
	sub, err := c.js.PullSubscribe(
		natsbus.InspectionSubjects,
		consumerName,
		nats.ManualAck(),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(5),
		nats.MaxAckPending(1000),
	)
	if err != nil {
		return err
	}
	c.sub = sub

	go c.consumeLoop(ctx)
	c.log.Info("Events consumer started", zap.String("consumer", consumerName))
	return nil
}

func (c *EventsConsumer) consumeLoop(ctx context.Context) {
	defer close(c.done)

	fetchSize := 32
	minFetch := 4
	maxFetch := 256
	fullCount := 0
	emptyCount := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.sub.Fetch(fetchSize, nats.MaxWait(5*time.Second))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			if ctx.Err() != nil || errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				return
			}
			c.log.Warn("Fetch error", zap.Error(err))
		}

		if len(msgs) == 0 {
			emptyCount++
			fullCount = 0
			if emptyCount >= 3 && fetchSize > minFetch {
				fetchSize = max(fetchSize/2, minFetch)
				emptyCount = 0
			}
			continue
		}

		if len(msgs) == fetchSize {
			fullCount++
			emptyCount = 0
			if fullCount >= 3 && fetchSize < maxFetch {
				fetchSize = min(fetchSize*2, maxFetch)
				fullCount = 0
			}
		} else {
			fullCount = 0
			emptyCount = 0
		}

		for _, msg := range msgs {
			err := c.processMessage(ctx, msg)
			if errors.Is(err, errTerminated) {
				continue
			}
			if err != nil {
				c.log.Warn("Process error", zap.String("subject", msg.Subject), zap.Error(err))
				_ = msg.NakWithDelay(5 * time.Second)
				continue
			}
			_ = msg.Ack()
		}
	}
}

func (c *EventsConsumer) processMessage(ctx context.Context, msg *nats.Msg) error {
	ev, err := DecodeEvent(msg.Data)
	if err != nil {
		c.log.Error("Unmarshal error (terminating)", zap.String("subject", msg.Subject), zap.Error(err))
		_ = msg.Term()
		return errTerminated
	}
	return c.processor.Process(ctx, ev)
}

func DecodeEvent(data []byte) (*models.InspectionEvent, error) {
	var ev models.InspectionEvent
	if err := msgpack.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Stop drains the subscription and waits for the loop to exit.
func (c *EventsConsumer) Stop() error {
	if c.sub == nil {
		return nil
	}
	err := c.sub.Drain()
	select {
	case <-c.done:
	case <-time.After(10 * time.Second):
	}
	return err
}
