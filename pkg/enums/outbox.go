package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column in outbox_events.
type OutboxAggregateType string

const (
	AggregateUser OutboxAggregateType = "user"
	AggregateFile OutboxAggregateType = "file"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateUser,
	AggregateFile,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column in outbox_events.
type OutboxEventType string

const (
	EventUserCreated        OutboxEventType = "user_created"
	EventUserProfileUpdated OutboxEventType = "user_profile_updated"
	EventUserDeactivated    OutboxEventType = "user_deactivated"
	EventUserLoggedIn       OutboxEventType = "user_logged_in"
	EventFileUploaded       OutboxEventType = "file_uploaded"
	EventFileDeleted        OutboxEventType = "file_deleted"
	EventStorageAllocated   OutboxEventType = "storage_allocated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventUserCreated,
	EventUserProfileUpdated,
	EventUserDeactivated,
	EventUserLoggedIn,
	EventFileUploaded,
	EventFileDeleted,
	EventStorageAllocated,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
