package files

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/martinreyes/filehub-backend/pkg/enums"
	"github.com/martinreyes/filehub-backend/pkg/events"
	"github.com/martinreyes/filehub-backend/pkg/outbox"
)

// FileUploadedEvent is recorded when a file row is persisted.
type FileUploadedEvent struct {
	events.Base
	FileID      uuid.UUID `json:"file_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
}

func (FileUploadedEvent) EventType() enums.OutboxEventType { return enums.EventFileUploaded }
func (FileUploadedEvent) Durable()                         {}

// FileDeletedEvent is recorded when a file is soft-deleted. Downstream
// consumers use it to reclaim blob storage.
type FileDeletedEvent struct {
	events.Base
	FileID  uuid.UUID `json:"file_id"`
	OwnerID uuid.UUID `json:"owner_id"`
}

func (FileDeletedEvent) EventType() enums.OutboxEventType { return enums.EventFileDeleted }
func (FileDeletedEvent) Durable()                         {}

// RegisterEvents wires this package's durable event constructors.
func RegisterEvents(registry *outbox.Registry) {
	registry.Register(enums.EventFileUploaded, func(payload json.RawMessage) (events.Event, error) {
		var event FileUploadedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	})
	registry.Register(enums.EventFileDeleted, func(payload json.RawMessage) (events.Event, error) {
		var event FileDeletedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	})
}
