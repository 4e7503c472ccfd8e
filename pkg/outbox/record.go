package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/martinreyes/filehub-backend/pkg/db/models"
	"github.com/martinreyes/filehub-backend/pkg/enums"
	"github.com/martinreyes/filehub-backend/pkg/events"
)

// DefaultMaxRetries seeds max_retries on new rows when the caller does not
// override it via config.
const DefaultMaxRetries = 5

var errAggregateRequired = errors.New("aggregate is required")

// NewRecord serializes a durable event into an outbox row bound to the
// producing aggregate. The row starts pending and immediately eligible.
func NewRecord(aggregate events.Aggregate, event events.Durable, maxRetries int) (*models.OutboxEvent, error) {
	if aggregate == nil {
		return nil, errAggregateRequired
	}
	if event == nil {
		return nil, errors.New("event is required")
	}
	if aggregate.AggregateID() == uuid.Nil {
		return nil, fmt.Errorf("aggregate %s has no id", aggregate.AggregateType())
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.EventType(), err)
	}

	now := time.Now().UTC()
	return &models.OutboxEvent{
		ID:            uuid.New(),
		AggregateID:   aggregate.AggregateID(),
		AggregateType: aggregate.AggregateType(),
		EventType:     event.EventType(),
		Payload:       payload,
		Status:        enums.OutboxStatusPending,
		RetryCount:    0,
		MaxRetries:    maxRetries,
		CreatedAt:     now,
		ScheduledAt:   now,
	}, nil
}
