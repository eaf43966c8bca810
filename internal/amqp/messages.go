package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/render"
)

// MessageTypeViewUpdated marks a freshly computed view.
const MessageTypeViewUpdated = "view.updated"

// ViewUpdatedMessage carries the full view so that subscribers never need
// to query the tracker back.
type ViewUpdatedMessage struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	View      render.Document `json:"view"`
}

func NewViewUpdatedMessage(v render.View, f render.Formatter) *ViewUpdatedMessage {
	return &ViewUpdatedMessage{
		Type:      MessageTypeViewUpdated,
		Timestamp: time.Now().UTC(),
		View:      render.NewDocument(v, f),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ViewUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ViewUpdatedMessageFromJSON decodes a message produced by ToJSON.
func ViewUpdatedMessageFromJSON(data []byte) (*ViewUpdatedMessage, error) {
	var msg ViewUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type != MessageTypeViewUpdated {
		return nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	return &msg, nil
}

// publisher is the part of Client the presenter uses.
type publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Presenter publishes every presented view as a ViewUpdatedMessage.
type Presenter struct {
	client publisher
	format render.Formatter
}

func NewPresenter(client *Client, symbol string) *Presenter {
	return &Presenter{client: client, format: render.NewFormatter(symbol)}
}

func (p *Presenter) Present(ctx context.Context, v render.View) error {
	body, err := NewViewUpdatedMessage(v, p.format).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal view message: %w", err)
	}
	if err := p.client.Publish(ctx, body); err != nil {
		return fmt.Errorf("publish view: %w", err)
	}
	return nil
}
