package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/martinreyes/filehub-backend/pkg/enums"
)

// OutboxEvent is one row of the transactional outbox. Rows are written in the
// same transaction as the aggregate change and drained by the delivery poller.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null;index"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:varchar(100);not null"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:varchar(100);not null;index"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	Status        enums.OutboxStatus        `gorm:"column:status;type:varchar(20);not null;index"`
	RetryCount    int                       `gorm:"column:retry_count;not null;default:0"`
	MaxRetries    int                       `gorm:"column:max_retries;not null;default:5"`
	CreatedAt     time.Time                 `gorm:"column:created_at;not null;index"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	ScheduledAt   time.Time                 `gorm:"column:scheduled_at;not null;index"`
	LastError     *string                   `gorm:"column:last_error;type:text"`
}

// TableName pins the table name regardless of gorm pluralization settings.
func (OutboxEvent) TableName() string {
	return "outbox_events"
}
