// Package events defines the in-process event contract the domain modules
// communicate over. Publishers never know who listens; the pipeline stays
// decoupled from the notification surface. Concrete event types live with
// their owning domain under internal/events.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName identifies the event type; subscriptions key on it.
	EventName() string
	// OccurredAt is the publication timestamp.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp so event types only add their payload.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a new event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler reacts to one event type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes published events to their subscribed handlers.
type Bus interface {
	// Publish delivers the event to every handler subscribed to its name.
	// Delivery is asynchronous; a slow handler never blocks the publisher.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers the event and waits for every handler,
	// returning their joined errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an event name, matched against
	// Event.EventName at publish time.
	Subscribe(eventName string, handler Handler)
}
