package users

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/martinreyes/filehub-backend/pkg/enums"
	"github.com/martinreyes/filehub-backend/pkg/events"
	"github.com/martinreyes/filehub-backend/pkg/outbox"
)

// UserCreatedEvent is recorded when an account row is first persisted.
type UserCreatedEvent struct {
	events.Base
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}

func (UserCreatedEvent) EventType() enums.OutboxEventType { return enums.EventUserCreated }
func (UserCreatedEvent) Durable()                         {}

// UserProfileUpdatedEvent carries the changed profile fields.
type UserProfileUpdatedEvent struct {
	events.Base
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
}

func (UserProfileUpdatedEvent) EventType() enums.OutboxEventType {
	return enums.EventUserProfileUpdated
}
func (UserProfileUpdatedEvent) Durable() {}

// UserDeactivatedEvent marks an account as no longer active.
type UserDeactivatedEvent struct {
	events.Base
	UserID uuid.UUID `json:"user_id"`
}

func (UserDeactivatedEvent) EventType() enums.OutboxEventType { return enums.EventUserDeactivated }
func (UserDeactivatedEvent) Durable()                         {}

// UserLoggedInEvent is informational. It is not durable: losing one is
// acceptable, so it bypasses the outbox and goes straight to the bus.
type UserLoggedInEvent struct {
	events.Base
	UserID uuid.UUID `json:"user_id"`
}

func (UserLoggedInEvent) EventType() enums.OutboxEventType { return enums.EventUserLoggedIn }

// RegisterEvents wires this package's durable event constructors so the
// poller can rehydrate stored payloads.
func RegisterEvents(registry *outbox.Registry) {
	registry.Register(enums.EventUserCreated, func(payload json.RawMessage) (events.Event, error) {
		var event UserCreatedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	})
	registry.Register(enums.EventUserProfileUpdated, func(payload json.RawMessage) (events.Event, error) {
		var event UserProfileUpdatedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	})
	registry.Register(enums.EventUserDeactivated, func(payload json.RawMessage) (events.Event, error) {
		var event UserDeactivatedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	})
}
