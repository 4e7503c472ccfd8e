package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/martinreyes/filehub-backend/pkg/eventbus"
	"github.com/martinreyes/filehub-backend/pkg/events"
)

// EventPublisher adapts a Pub/Sub topic publisher to the event bus so
// rehydrated outbox events flow out over the domain topic.
type EventPublisher struct {
	publisher *pubsub.Publisher
}

// NewEventPublisher wraps the topic publisher. A nil publisher is accepted
// and surfaces as a non-retryable error on publish, so the poller
// dead-letters instead of spinning.
func NewEventPublisher(publisher *pubsub.Publisher) *EventPublisher {
	return &EventPublisher{publisher: publisher}
}

type eventMeta interface {
	EventMeta() (uuid.UUID, time.Time)
}

// Publish serializes the event and sends it with type metadata attached as
// message attributes, so consumers can route without decoding the payload.
func (p *EventPublisher) Publish(ctx context.Context, event events.Event) error {
	if event == nil {
		return eventbus.NewNonRetryableError(errors.New("event is nil"))
	}
	if p == nil || p.publisher == nil {
		return eventbus.NewNonRetryableError(errors.New("publisher not configured"))
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return eventbus.NewNonRetryableError(fmt.Errorf("marshal %s: %w", event.EventType(), err))
	}

	attributes := map[string]string{
		"event_type": string(event.EventType()),
	}
	if meta, ok := event.(eventMeta); ok {
		eventID, occurredAt := meta.EventMeta()
		if eventID != uuid.Nil {
			attributes["event_id"] = eventID.String()
			attributes["occurred_at"] = occurredAt.Format(time.RFC3339Nano)
		}
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: attributes,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType(), err)
	}
	return nil
}

// PublishMany sends each event, collecting failures rather than stopping at
// the first one.
func (p *EventPublisher) PublishMany(ctx context.Context, batch []events.Event) error {
	var errs error
	for _, event := range batch {
		errs = multierr.Append(errs, p.Publish(ctx, event))
	}
	return errs
}

var _ eventbus.Bus = (*EventPublisher)(nil)
