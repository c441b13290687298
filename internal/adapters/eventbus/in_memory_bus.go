package eventbus

import (
	"CommunicationHub/internal/core/ports"
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// inMemoryEventBus implements ports.EventBus with one goroutine per delivery.
type inMemoryEventBus struct {
	log         zerolog.Logger
	subscribers map[string][]ports.EventHandler
	mu          sync.RWMutex
	inFlight    sync.WaitGroup
}

// NewInMemoryEventBus creates a bus with no subscribers.
func NewInMemoryEventBus(baseLogger *zerolog.Logger) ports.EventBus {
	return &inMemoryEventBus{
		log:         baseLogger.With().Str("component", "in_memory_bus").Logger(),
		subscribers: make(map[string][]ports.EventHandler),
	}
}

// Publish delivers the event to each subscriber of topic in its own goroutine.
func (b *inMemoryEventBus) Publish(ctx context.Context, topic string, data any) error {
	b.mu.RLock()
	handlers := b.subscribers[topic]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug().Str("topic", topic).Msg("Published event with no subscribers")
		return nil
	}

	event := ports.Event{Topic: topic, Data: data}

	// Handlers get a detached context: the publisher's request may end first.
	hctx := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		b.inFlight.Add(1)
		go func(h ports.EventHandler) {
			defer b.inFlight.Done()
			if err := h(hctx, event); err != nil {
				b.log.Error().Err(err).Str("topic", topic).Msg("Event handler failed")
			}
		}(handler)
	}

	b.log.Debug().Str("topic", topic).Int("handlers", len(handlers)).Msg("Event published")
	return nil
}

// Subscribe registers a handler for a specific topic
func (b *inMemoryEventBus) Subscribe(topic string, handler ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[topic] = append(b.subscribers[topic], handler)
	b.log.Info().Str("topic", topic).Msg("New handler subscribed to topic")
}

// Drain waits for in-flight deliveries.
func (b *inMemoryEventBus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		b.log.Warn().Msg("Gave up waiting for event handlers")
		return ctx.Err()
	}
}
