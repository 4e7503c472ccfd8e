package eventbus

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/martinreyes/filehub-backend/pkg/enums"
	"github.com/martinreyes/filehub-backend/pkg/events"
)

// Handler reacts to one delivered event.
type Handler func(ctx context.Context, event events.Event) error

// InMemoryBus fans events out to in-process subscribers. Used for direct
// (fire-and-forget) events and in tests.
type InMemoryBus struct {
	mtx      sync.RWMutex
	handlers map[enums.OutboxEventType][]Handler
}

// NewInMemoryBus builds an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[enums.OutboxEventType][]Handler)}
}

// Subscribe registers a handler for the given event type.
func (b *InMemoryBus) Subscribe(eventType enums.OutboxEventType, handler Handler) {
	if handler == nil {
		return
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers the event to every subscriber of its type. Handler errors
// are aggregated; one failing handler does not stop the others.
func (b *InMemoryBus) Publish(ctx context.Context, event events.Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	b.mtx.RLock()
	handlers := b.handlers[event.EventType()]
	b.mtx.RUnlock()

	var errs error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("handler for %s: %w", event.EventType(), err))
		}
	}
	return errs
}

// PublishMany delivers each event in order, aggregating failures.
func (b *InMemoryBus) PublishMany(ctx context.Context, batch []events.Event) error {
	var errs error
	for _, event := range batch {
		if err := b.Publish(ctx, event); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
