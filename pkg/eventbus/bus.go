package eventbus

import (
	"context"
	"errors"

	"github.com/martinreyes/filehub-backend/pkg/events"
)

// Bus delivers events to subscribers. Implementations make no durability
// promise of their own; the outbox compensates for that.
type Bus interface {
	Publish(ctx context.Context, event events.Event) error
	PublishMany(ctx context.Context, batch []events.Event) error
}

// NonRetryableError signals the poller should dead-letter a row instead of
// consuming retry budget on it.
type NonRetryableError struct {
	Err error
}

// NewNonRetryableError wraps err as permanent.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// IsNonRetryable reports whether err carries the permanent-failure marker.
func IsNonRetryable(err error) bool {
	var nonRetry NonRetryableError
	return errors.As(err, &nonRetry)
}
