package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event is a single fan-out notification. Payload stays raw JSON so the bus
// never depends on domain types and events survive a trip through Redis
// unchanged.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent builds an Event by marshalling payload to JSON.
func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("broadcast: marshal %q payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: data}, nil
}

// Subscriber receives events from a single channel.
type Subscriber interface {
	// Events returns the receive channel. It is closed when the subscription
	// ends, whether by Close, context cancellation, or broadcaster shutdown.
	Events() <-chan Event

	// Close ends the subscription. Safe to call multiple times.
	Close()
}

// Broadcaster publishes events to named channels and creates subscriptions.
// Implementations must be safe for concurrent use.
type Broadcaster interface {
	// Publish delivers an event to every subscriber currently connected to
	// the channel. It never blocks on slow consumers.
	Publish(ctx context.Context, channel string, evt Event) error

	// Subscribe connects to a channel. The subscription lives until Close is
	// called on the subscriber or ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (Subscriber, error)

	// Close shuts the broadcaster down and closes all subscribers.
	Close() error
}
