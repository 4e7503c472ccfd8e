package outbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martinreyes/filehub-backend/pkg/db/models"
	"github.com/martinreyes/filehub-backend/pkg/enums"
)

var errTxRequired = errors.New("transaction required")

// Repository is the event store: all durable reads and writes over
// outbox_events. Inserts only ever run on a caller-supplied transaction so
// rows commit atomically with the business write. Status transitions are
// conditional updates so concurrent pollers cannot double-process a row.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository binds a GORM handle to outbox persistence.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Save inserts one row on the caller's open transaction. No implicit commit.
func (r *Repository) Save(tx *gorm.DB, record *models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Create(record).Error
}

// SaveMany inserts a batch of rows on the caller's open transaction.
func (r *Repository) SaveMany(tx *gorm.DB, records []*models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if len(records) == 0 {
		return nil
	}
	return tx.Create(records).Error
}

// FetchReady returns up to limit pending rows eligible before the given
// time, oldest first.
func (r *Repository) FetchReady(limit int, before time.Time) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.
		Where("status = ? AND scheduled_at <= ?", enums.OutboxStatusPending, before).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkPublished transitions a pending row to published and reports whether
// the transition happened. A row already published or failed is left alone.
func (r *Repository) MarkPublished(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.OutboxEvent{}).
		Where("id = ? AND status = ?", id, enums.OutboxStatusPending).
		Updates(map[string]any{
			"status":       enums.OutboxStatusPublished,
			"published_at": r.now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementRetry records a failed attempt. When the attempt count reaches the
// row's ceiling the row is dead-lettered instead of rescheduled.
func (r *Repository) IncrementRetry(id uuid.UUID, cause string, nextScheduledAt time.Time) error {
	var row models.OutboxEvent
	if err := r.db.Where("id = ?", id).First(&row).Error; err != nil {
		return fmt.Errorf("load outbox row %s: %w", id, err)
	}

	newCount := row.RetryCount + 1
	if newCount >= row.MaxRetries {
		message := fmt.Sprintf("max retries (%d) exceeded, last error: %s", row.MaxRetries, cause)
		return r.db.Model(&models.OutboxEvent{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":      enums.OutboxStatusFailed,
				"retry_count": newCount,
				"last_error":  message,
			}).Error
	}

	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count":  newCount,
			"last_error":   cause,
			"scheduled_at": nextScheduledAt.UTC(),
		}).Error
}

// MarkFailed dead-letters a pending row without consuming retry budget. Used
// for permanent failures such as unknown event types.
func (r *Repository) MarkFailed(id uuid.UUID, cause string) (bool, error) {
	result := r.db.Model(&models.OutboxEvent{}).
		Where("id = ? AND status = ?", id, enums.OutboxStatusPending).
		Updates(map[string]any{
			"status":     enums.OutboxStatusFailed,
			"last_error": cause,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CleanupPublished deletes published rows older than the retention window and
// returns the number removed. Pending and failed rows are never touched.
func (r *Repository) CleanupPublished(olderThan time.Duration) (int64, error) {
	cutoff := r.now().UTC().Add(-olderThan)
	result := r.db.
		Where("status = ? AND published_at < ?", enums.OutboxStatusPublished, cutoff).
		Delete(&models.OutboxEvent{})
	return result.RowsAffected, result.Error
}

// GetFailed lists dead-lettered rows for operator inspection, newest first.
func (r *Repository) GetFailed(limit int) ([]models.OutboxEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.OutboxEvent
	err := r.db.
		Where("status = ?", enums.OutboxStatusFailed).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RetryFailed resets a dead-lettered row to pending with a fresh retry
// budget. Reports whether the row was actually in failed state.
func (r *Repository) RetryFailed(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.OutboxEvent{}).
		Where("id = ? AND status = ?", id, enums.OutboxStatusFailed).
		Updates(map[string]any{
			"status":       enums.OutboxStatusPending,
			"retry_count":  0,
			"scheduled_at": r.now().UTC(),
			"last_error":   nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
