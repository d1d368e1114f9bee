package outbox

import (
	"context"
	"time"

	"github.com/peersenco/storefront-backend/pkg/db/models"
)

// Message is what a sink delivers. Key carries the aggregate id so brokers
// that partition by key keep one order's events together.
type Message struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Sink is a broker the publisher can deliver to.
type Sink interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
	Ping(ctx context.Context) error
	Close() error
}

// MessageFor builds the broker message for a stored event.
func MessageFor(event models.OutboxEvent, envelope PayloadEnvelope) Message {
	attrs := map[string]string{
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if envelope.EventID != "" {
		attrs["event_id"] = envelope.EventID
	}
	return Message{
		Key:        event.AggregateID.String(),
		Data:       event.Payload,
		Attributes: attrs,
	}
}
