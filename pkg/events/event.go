package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/martinreyes/filehub-backend/pkg/enums"
)

// Event is something that happened in the domain. Events are published to the
// in-process bus right after commit unless they are also Durable, in which
// case they go through the outbox first.
type Event interface {
	EventType() enums.OutboxEventType
}

// Durable marks events that must survive a crash: they are persisted to the
// outbox table in the same transaction as the aggregate change and delivered
// later by the poller. Events without the marker are fire-and-forget.
type Durable interface {
	Event
	Durable()
}

// Base carries the identity every event gets at creation time. Embed it in
// concrete event payloads.
type Base struct {
	EventID    uuid.UUID `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewBase stamps a fresh event identity.
func NewBase() Base {
	return Base{
		EventID:    uuid.New(),
		OccurredAt: time.Now().UTC(),
	}
}

// EventMeta exposes the stamped identity, used for transport attributes.
func (b Base) EventMeta() (uuid.UUID, time.Time) {
	return b.EventID, b.OccurredAt
}

// Aggregate is a business entity that produces events. The unit of work
// drains its accumulated events at commit time.
type Aggregate interface {
	AggregateID() uuid.UUID
	AggregateType() enums.OutboxAggregateType
	Events() []Event
	ClearEvents()
}

// Recorder accumulates events for an aggregate. Embed it in aggregate types;
// it is not safe for concurrent use, matching the single-transaction
// ownership of an aggregate instance.
type Recorder struct {
	events []Event
}

// Record appends an event to the pending list.
func (r *Recorder) Record(event Event) {
	if event == nil {
		return
	}
	r.events = append(r.events, event)
}

// Events returns the pending events in record order.
func (r *Recorder) Events() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ClearEvents drops all pending events.
func (r *Recorder) ClearEvents() {
	r.events = nil
}
