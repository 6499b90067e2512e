package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/zhouzirui/medassist/backend/internal/model/chat"
)

// Publisher is the subset of *nats.Conn used here.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// TurnEvent is the payload published for every appended turn.
type TurnEvent struct {
	EventID   string    `json:"event_id"`
	SessionID string    `json:"session_id"`
	Index     int       `json:"index"`
	Sender    string    `json:"sender"`
	Status    string    `json:"status"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Connect dials NATS with unlimited reconnects.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("medassist-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[events] NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("[events] NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// TurnPublisher publishes turns on {prefix}.{sessionID}.turn.
type TurnPublisher struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

// NewTurnPublisher wraps a NATS connection or any other Publisher.
func NewTurnPublisher(pub Publisher, prefix string) *TurnPublisher {
	return &TurnPublisher{pub: pub, prefix: prefix, now: time.Now}
}

// Subject returns the subject turns of a session are published on.
func (p *TurnPublisher) Subject(sessionID string) string {
	return fmt.Sprintf("%s.%s.turn", p.prefix, sessionID)
}

// PublishTurn encodes and publishes one turn.
func (p *TurnPublisher) PublishTurn(_ context.Context, sessionID string, index int, turn chat.Turn) error {
	ts := turn.CreatedAt
	if ts.IsZero() {
		ts = p.now().UTC()
	}
	data, err := json.Marshal(TurnEvent{
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		Index:     index,
		Sender:    string(turn.Sender),
		Status:    string(turn.Status),
		Text:      turn.Text,
		Timestamp: ts,
	})
	if err != nil {
		return fmt.Errorf("encode turn event: %w", err)
	}
	if err := p.pub.Publish(p.Subject(sessionID), data); err != nil {
		return fmt.Errorf("publish turn event: %w", err)
	}
	return nil
}
