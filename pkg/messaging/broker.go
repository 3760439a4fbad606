package messaging

import (
	"context"
)

// Broker moves domain events between the outbox processor and consumers.
// Channels are named after event types; subscribers get raw JSON frames.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope published for every domain event.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
