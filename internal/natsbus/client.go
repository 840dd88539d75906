package natsbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	StreamName = "INSPECTION_EVENTS"
	// InspectionSubjects matches facility.inspections.<action>.
	InspectionSubjects = "facility.inspections.>"
	subjectPrefix      = "facility.inspections."
)

type Client struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	log *zap.Logger
}

// Connect establishes the NATS connection and makes sure the inspection stream
// exists. creds may be nil for servers without authentication.
func Connect(url string, creds *Credentials, log *zap.Logger) (*Client, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.Name("facility-checklist"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(1 * time.Second),
		nats.ReconnectJitter(500*time.Millisecond, 2*time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	if creds != nil {
		opts = append(opts, creds.Option())
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	log.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if err := ensureStream(js, log); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return &Client{nc: nc, js: js, log: log}, nil
}

// Close drains and closes the NATS connection.
func (c *Client) Close() error {
	return c.nc.Drain()
}

func (c *Client) JS() nats.JetStreamContext {
	return c.js
}

// Subject returns the subject an event with the given action is published on.
func Subject(action string) string {
	return subjectPrefix + action
}

func ensureStream(js nats.JetStreamContext, log *zap.Logger) error {
	_, err := js.StreamInfo(StreamName)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       StreamName,
			Subjects:   []string{InspectionSubjects},
			Retention:  nats.LimitsPolicy,
			MaxAge:     30 * 24 * time.Hour,
			MaxBytes:   1024 * 1024 * 1024, // 1GB
			MaxMsgSize: 1024 * 1024,        // 1MB
			Discard:    nats.DiscardOld,
			Storage:    nats.FileStorage,
			Duplicates: 2 * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("create stream %s: %w", StreamName, err)
		}
		log.Info("Created JetStream stream", zap.String("stream", StreamName))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	return nil
}
