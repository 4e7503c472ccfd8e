package enums

import "fmt"

// OutboxStatus is the delivery lifecycle state of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

var validOutboxStatuses = []OutboxStatus{
	OutboxStatusPending,
	OutboxStatusPublished,
	OutboxStatusFailed,
}

// IsValid reports whether the status is part of the outbox lifecycle.
func (s OutboxStatus) IsValid() bool {
	for _, candidate := range validOutboxStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether a transition from s to next is allowed.
// Published rows are terminal until cleanup deletes them; failed rows can
// only go back to pending via an explicit operator retry.
func (s OutboxStatus) CanTransitionTo(next OutboxStatus) bool {
	switch s {
	case OutboxStatusPending:
		return next == OutboxStatusPublished || next == OutboxStatusFailed
	case OutboxStatusFailed:
		return next == OutboxStatusPending
	case OutboxStatusPublished:
		return false
	default:
		return false
	}
}

// ParseOutboxStatus validates and converts a raw string status.
func ParseOutboxStatus(value string) (OutboxStatus, error) {
	for _, candidate := range validOutboxStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox status %q", value)
}
