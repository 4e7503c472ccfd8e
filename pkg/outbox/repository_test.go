package outbox

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/martinreyes/filehub-backend/pkg/db/models"
	"github.com/martinreyes/filehub-backend/pkg/enums"
)

const outboxEventsDDL = `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  aggregate_id TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  event_type TEXT NOT NULL,
  payload TEXT NOT NULL,
  status TEXT NOT NULL,
  retry_count INTEGER NOT NULL DEFAULT 0,
  max_retries INTEGER NOT NULL DEFAULT 5,
  created_at DATETIME,
  published_at DATETIME,
  scheduled_at DATETIME,
  last_error TEXT
);`

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(outboxEventsDDL).Error)
	return db
}

func seedRecord(t *testing.T, db *gorm.DB, mutate func(*models.OutboxEvent)) models.OutboxEvent {
	t.Helper()

	now := time.Now().UTC()
	record := models.OutboxEvent{
		ID:            uuid.New(),
		AggregateID:   uuid.New(),
		AggregateType: enums.AggregateUser,
		EventType:     enums.EventUserCreated,
		Payload:       []byte(`{"email":"a@b.test"}`),
		Status:        enums.OutboxStatusPending,
		MaxRetries:    3,
		CreatedAt:     now,
		ScheduledAt:   now,
	}
	if mutate != nil {
		mutate(&record)
	}
	require.NoError(t, db.Create(&record).Error)
	return record
}

func loadRecord(t *testing.T, db *gorm.DB, id uuid.UUID) models.OutboxEvent {
	t.Helper()

	var row models.OutboxEvent
	require.NoError(t, db.Where("id = ?", id).First(&row).Error)
	return row
}

func TestSaveRequiresTransaction(t *testing.T) {
	repo := NewRepository(setupOutboxTestDB(t))

	require.Error(t, repo.Save(nil, &models.OutboxEvent{}))
	require.Error(t, repo.SaveMany(nil, []*models.OutboxEvent{{}}))
}

func TestSaveManyInsertsOnTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	records := []*models.OutboxEvent{
		{
			ID:            uuid.New(),
			AggregateID:   uuid.New(),
			AggregateType: enums.AggregateUser,
			EventType:     enums.EventUserCreated,
			Payload:       []byte(`{}`),
			Status:        enums.OutboxStatusPending,
			MaxRetries:    3,
			CreatedAt:     now,
			ScheduledAt:   now,
		},
		{
			ID:            uuid.New(),
			AggregateID:   uuid.New(),
			AggregateType: enums.AggregateFile,
			EventType:     enums.EventFileUploaded,
			Payload:       []byte(`{}`),
			Status:        enums.OutboxStatusPending,
			MaxRetries:    3,
			CreatedAt:     now,
			ScheduledAt:   now,
		},
	}

	tx := db.Begin()
	require.NoError(t, repo.SaveMany(tx, records))
	require.NoError(t, tx.Commit().Error)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestFetchReadyReturnsEligiblePendingOldestFirst(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	second := seedRecord(t, db, func(r *models.OutboxEvent) {
		r.CreatedAt = now.Add(-1 * time.Minute)
		r.ScheduledAt = now.Add(-1 * time.Minute)
	})
	first := seedRecord(t, db, func(r *models.OutboxEvent) {
		r.CreatedAt = now.Add(-2 * time.Minute)
		r.ScheduledAt = now.Add(-2 * time.Minute)
	})
	// Backed off into the future, not yet eligible.
	seedRecord(t, db, func(r *models.OutboxEvent) {
		r.ScheduledAt = now.Add(10 * time.Minute)
	})
	seedRecord(t, db, func(r *models.OutboxEvent) {
		r.Status = enums.OutboxStatusPublished
	})
	seedRecord(t, db, func(r *models.OutboxEvent) {
		r.Status = enums.OutboxStatusFailed
	})

	rows, err := repo.FetchReady(10, now)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)
}

func TestFetchReadyHonorsLimit(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		seedRecord(t, db, func(r *models.OutboxEvent) {
			r.CreatedAt = now.Add(time.Duration(-i) * time.Minute)
			r.ScheduledAt = r.CreatedAt
		})
	}

	rows, err := repo.FetchReady(3, now)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestMarkPublishedIsConditional(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	record := seedRecord(t, db, nil)

	marked, err := repo.MarkPublished(record.ID)
	require.NoError(t, err)
	assert.True(t, marked)

	row := loadRecord(t, db, record.ID)
	assert.Equal(t, enums.OutboxStatusPublished, row.Status)
	require.NotNil(t, row.PublishedAt)

	// A second poller observing the stale pending row must lose the race.
	marked, err = repo.MarkPublished(record.ID)
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestIncrementRetryReschedules(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	record := seedRecord(t, db, nil)

	next := time.Now().UTC().Add(2 * time.Minute)
	require.NoError(t, repo.IncrementRetry(record.ID, "broker unavailable", next))

	row := loadRecord(t, db, record.ID)
	assert.Equal(t, enums.OutboxStatusPending, row.Status)
	assert.Equal(t, 1, row.RetryCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "broker unavailable", *row.LastError)
	assert.WithinDuration(t, next, row.ScheduledAt, time.Second)
}

func TestIncrementRetryDeadLettersAtCeiling(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	record := seedRecord(t, db, func(r *models.OutboxEvent) {
		r.RetryCount = 2
		r.MaxRetries = 3
	})

	next := time.Now().UTC().Add(2 * time.Minute)
	require.NoError(t, repo.IncrementRetry(record.ID, "broker unavailable", next))

	row := loadRecord(t, db, record.ID)
	assert.Equal(t, enums.OutboxStatusFailed, row.Status)
	assert.Equal(t, 3, row.RetryCount)
	require.NotNil(t, row.LastError)
	assert.Contains(t, *row.LastError, "max retries (3) exceeded")
	assert.Contains(t, *row.LastError, "broker unavailable")
}

func TestMarkFailedKeepsRetryBudget(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	record := seedRecord(t, db, nil)

	marked, err := repo.MarkFailed(record.ID, "unknown event type: ghost")
	require.NoError(t, err)
	assert.True(t, marked)

	row := loadRecord(t, db, record.ID)
	assert.Equal(t, enums.OutboxStatusFailed, row.Status)
	assert.Equal(t, 0, row.RetryCount)
	require.NotNil(t, row.LastError)
	assert.Contains(t, *row.LastError, "unknown event type")

	marked, err = repo.MarkFailed(record.ID, "again")
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestCleanupPublishedOnlyRemovesOldPublished(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()
	repo.now = func() time.Time { return now }

	oldPublished := now.Add(-48 * time.Hour)
	freshPublished := now.Add(-1 * time.Hour)

	stale := seedRecord(t, db, func(r *models.OutboxEvent) {
		r.Status = enums.OutboxStatusPublished
		r.PublishedAt = &oldPublished
	})
	fresh := seedRecord(t, db, func(r *models.OutboxEvent) {
		r.Status = enums.OutboxStatusPublished
		r.PublishedAt = &freshPublished
	})
	pending := seedRecord(t, db, func(r *models.OutboxEvent) {
		r.CreatedAt = now.Add(-72 * time.Hour)
	})
	failed := seedRecord(t, db, func(r *models.OutboxEvent) {
		r.Status = enums.OutboxStatusFailed
		r.CreatedAt = now.Add(-72 * time.Hour)
	})

	deleted, err := repo.CleanupPublished(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var ids []string
	require.NoError(t, db.Model(&models.OutboxEvent{}).Pluck("id", &ids).Error)
	assert.Len(t, ids, 3)
	assert.NotContains(t, ids, stale.ID.String())
	assert.Contains(t, ids, fresh.ID.String())
	assert.Contains(t, ids, pending.ID.String())
	assert.Contains(t, ids, failed.ID.String())
}

func TestGetFailedNewestFirst(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	older := seedRecord(t, db, func(r *models.OutboxEvent) {
		r.Status = enums.OutboxStatusFailed
		r.CreatedAt = now.Add(-2 * time.Hour)
	})
	newer := seedRecord(t, db, func(r *models.OutboxEvent) {
		r.Status = enums.OutboxStatusFailed
		r.CreatedAt = now.Add(-1 * time.Hour)
	})
	seedRecord(t, db, nil)

	rows, err := repo.GetFailed(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
}

func TestRetryFailedResetsRow(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	cause := "max retries (3) exceeded"
	record := seedRecord(t, db, func(r *models.OutboxEvent) {
		r.Status = enums.OutboxStatusFailed
		r.RetryCount = 3
		r.LastError = &cause
		r.ScheduledAt = time.Now().UTC().Add(-time.Hour)
	})

	retried, err := repo.RetryFailed(record.ID)
	require.NoError(t, err)
	assert.True(t, retried)

	row := loadRecord(t, db, record.ID)
	assert.Equal(t, enums.OutboxStatusPending, row.Status)
	assert.Equal(t, 0, row.RetryCount)
	assert.Nil(t, row.LastError)
	assert.WithinDuration(t, time.Now().UTC(), row.ScheduledAt, 5*time.Second)

	// Pending rows are not a valid source state for operator retry.
	retried, err = repo.RetryFailed(record.ID)
	require.NoError(t, err)
	assert.False(t, retried)
}
