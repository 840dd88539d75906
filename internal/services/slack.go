package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"facility-checklist/internal/models"
)

// SlackClient posts inspection change notifications to an incoming webhook.
type SlackClient struct {
	webhookURL string
	client     *http.Client
}

type SlackMessage struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

type Block struct {
	Type   string  `json:"type"`
	Text   *Text   `json:"text,omitempty"`
	Fields []*Text `json:"fields,omitempty"`
}

type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

func NewSlackClient(webhookURL string) *SlackClient {
	return &SlackClient{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SlackClient) Enabled() bool {
	return c != nil && c.webhookURL != ""
}

// NotifyInspection posts one message for an applied change. rec may be nil when
// the event carried no snapshot.
func (c *SlackClient) NotifyInspection(ctx context.Context, ev *models.InspectionEvent, rec *models.Inspection) error {
	if !c.Enabled() {
		return nil
	}
	return c.sendMessage(ctx, buildInspectionMessage(ev, rec))
}

func buildInspectionMessage(ev *models.InspectionEvent, rec *models.Inspection) SlackMessage {
	emoji := "📝"
	switch ev.Action {
	case models.ActionCreated:
		emoji = "🆕"
	case models.ActionDeleted:
		emoji = "🗑️"
	}

	title := fmt.Sprintf("%s Inspection #%d %s by %s", emoji, ev.InspectionID, ev.Action, actorOrUnknown(ev.Actor))
	msg := SlackMessage{
		Text: title,
		Blocks: []Block{
			{Type: "header", Text: &Text{Type: "plain_text", Text: title, Emoji: true}},
		},
	}

	if rec != nil {
		msg.Blocks = append(msg.Blocks, Block{
			Type: "section",
			Fields: []*Text{
				{Type: "mrkdwn", Text: "*Building:*\n" + rec.BuildingName},
				{Type: "mrkdwn", Text: "*Location ID:*\n" + rec.FunctionLocationID},
				{Type: "mrkdwn", Text: "*Zone:*\n" + orDash(rec.Zone)},
				{Type: "mrkdwn", Text: "*Full inspection:*\n" + orDash(rec.FullInspectionCompleted)},
			},
		})
		if rec.FireProtectionSystemObsolete == "Obsolete" {
			msg.Blocks = append(msg.Blocks, Block{
				Type: "section",
				Text: &Text{Type: "mrkdwn", Text: "⚠️ *Fire protection system reported obsolete*"},
			})
		}
	}
	return msg
}

func (c *SlackClient) sendMessage(ctx context.Context, message SlackMessage) error {
	reqBody, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack error: %s", string(body))
	}

	return nil
}

func actorOrUnknown(actor string) string {
	if actor == "" {
		return "unknown"
	}
	return actor
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
