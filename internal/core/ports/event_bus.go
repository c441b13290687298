package ports

import "context"

// Event carries one published payload.
type Event struct {
	Topic string
	Data  any
}

// EventHandler handles the events of one topic.
type EventHandler func(ctx context.Context, event Event) error

// EventBus is the in-process pub/sub used to fan out audit records.
type EventBus interface {
	// Publish hands data to every subscriber of topic. It does not wait for them.
	Publish(ctx context.Context, topic string, data any) error

	// Subscribe registers a handler for a topic.
	Subscribe(topic string, handler EventHandler)

	// Drain blocks until every handler started so far has returned, or ctx ends.
	Drain(ctx context.Context) error
}
