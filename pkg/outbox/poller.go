package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/martinreyes/filehub-backend/pkg/db/models"
	"github.com/martinreyes/filehub-backend/pkg/enums"
	apperrors "github.com/martinreyes/filehub-backend/pkg/errors"
	"github.com/martinreyes/filehub-backend/pkg/eventbus"
	"github.com/martinreyes/filehub-backend/pkg/events"
	"github.com/martinreyes/filehub-backend/pkg/jobs"
	"github.com/martinreyes/filehub-backend/pkg/logger"
	"github.com/martinreyes/filehub-backend/pkg/metrics"
)

const (
	taskProcessBatch = "outbox.process_batch"
	taskCleanup      = "outbox.cleanup"

	defaultBatchSize       = 100
	defaultPollInterval    = 5 * time.Second
	defaultBaseBackoff     = time.Minute
	defaultCleanupInterval = time.Hour
	defaultRetention       = 7 * 24 * time.Hour
	defaultPublishTimeout  = 15 * time.Second
	maxBackoff             = time.Hour
)

type pollerRepository interface {
	FetchReady(limit int, before time.Time) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) (bool, error)
	IncrementRetry(id uuid.UUID, cause string, nextScheduledAt time.Time) error
	MarkFailed(id uuid.UUID, cause string) (bool, error)
	CleanupPublished(olderThan time.Duration) (int64, error)
}

type eventFactory interface {
	Create(eventType enums.OutboxEventType, payload json.RawMessage) (events.Event, error)
}

type PollerParams struct {
	Repository      pollerRepository
	Registry        eventFactory
	Bus             eventbus.Bus
	Runner          jobs.Runner
	Logger          *logger.Logger
	Metrics         *metrics.OutboxMetrics
	BatchSize       int
	PollInterval    time.Duration
	BaseBackoff     time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
}

// Poller drains ready outbox rows onto the bus and prunes published rows.
// One process runs one poller; rows stay visible to operators through the
// repository, not through the poller itself.
type Poller struct {
	repo            pollerRepository
	registry        eventFactory
	bus             eventbus.Bus
	runner          jobs.Runner
	logg            *logger.Logger
	mets            *metrics.OutboxMetrics
	batchSize       int
	pollInterval    time.Duration
	baseBackoff     time.Duration
	cleanupInterval time.Duration
	retention       time.Duration
	now             func() time.Time
	running         atomic.Bool
}

func NewPoller(params PollerParams) (*Poller, error) {
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.Bus == nil {
		return nil, errors.New("event bus is required")
	}
	if params.Runner == nil {
		return nil, errors.New("job runner is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}

	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := params.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	base := params.BaseBackoff
	if base <= 0 {
		base = defaultBaseBackoff
	}
	cleanup := params.CleanupInterval
	if cleanup <= 0 {
		cleanup = defaultCleanupInterval
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	return &Poller{
		repo:            params.Repository,
		registry:        params.Registry,
		bus:             params.Bus,
		runner:          params.Runner,
		logg:            params.Logger,
		mets:            params.Metrics,
		batchSize:       batch,
		pollInterval:    poll,
		baseBackoff:     base,
		cleanupInterval: cleanup,
		retention:       retention,
		now:             func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start registers the delivery and cleanup tasks and enqueues their first
// executions. Calling Start on a running poller is a no-op.
func (p *Poller) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.runner.RegisterTask(taskProcessBatch, p.processBatchTask); err != nil {
		p.running.Store(false)
		return err
	}
	if err := p.runner.RegisterTask(taskCleanup, p.cleanupTask); err != nil {
		p.running.Store(false)
		return err
	}
	if err := p.runner.Enqueue(taskProcessBatch, 0); err != nil {
		p.running.Store(false)
		return err
	}
	if err := p.runner.Enqueue(taskCleanup, p.cleanupInterval); err != nil {
		p.running.Store(false)
		return err
	}
	return nil
}

// Stop prevents further rescheduling. In-flight cycles finish on their own.
func (p *Poller) Stop() {
	p.running.Store(false)
}

func (p *Poller) processBatchTask(ctx context.Context) {
	full := p.ProcessBatch(ctx)
	if !p.running.Load() || ctx.Err() != nil {
		return
	}
	delay := p.pollInterval
	if full {
		delay = 0
	}
	if err := p.runner.Enqueue(taskProcessBatch, delay); err != nil {
		p.logg.Error(ctx, "reschedule outbox delivery", err)
	}
}

func (p *Poller) cleanupTask(ctx context.Context) {
	p.Cleanup(ctx)
	if !p.running.Load() || ctx.Err() != nil {
		return
	}
	if err := p.runner.Enqueue(taskCleanup, p.cleanupInterval); err != nil {
		p.logg.Error(ctx, "reschedule outbox cleanup", err)
	}
}

// ProcessBatch delivers one batch of ready rows. It reports whether the batch
// was full, so the caller can poll again without waiting. A failure on one
// row never blocks the rest of the batch.
func (p *Poller) ProcessBatch(ctx context.Context) bool {
	started := p.now()
	records, err := p.repo.FetchReady(p.batchSize, started)
	if err != nil {
		p.logg.Error(ctx, "fetch ready outbox events", err)
		return false
	}
	if len(records) == 0 {
		return false
	}

	for _, record := range records {
		p.deliver(ctx, record)
	}
	p.mets.ObserveBatchDuration(p.now().Sub(started))
	return len(records) == p.batchSize
}

func (p *Poller) deliver(ctx context.Context, record models.OutboxEvent) {
	ctx = p.logg.WithFields(ctx, p.eventFields(record))

	event, err := p.registry.Create(record.EventType, record.Payload)
	if err != nil {
		p.deadLetter(ctx, record, fmt.Errorf("reconstruct event: %w", err))
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	err = p.bus.Publish(publishCtx, event)
	cancel()
	if err != nil {
		if eventbus.IsNonRetryable(err) || !apperrors.IsRetryable(err) {
			p.deadLetter(ctx, record, err)
			return
		}
		p.scheduleRetry(ctx, record, err)
		return
	}

	marked, err := p.repo.MarkPublished(record.ID)
	if err != nil {
		p.logg.Error(ctx, "mark outbox event published", err)
		return
	}
	if !marked {
		p.logg.Info(ctx, "outbox event already published, skipping")
		return
	}
	p.mets.IncPublished(string(record.EventType))
	p.logg.Info(ctx, "outbox event published")
}

func (p *Poller) scheduleRetry(ctx context.Context, record models.OutboxEvent, cause error) {
	next := p.now().Add(p.backoffFor(record.RetryCount))
	if err := p.repo.IncrementRetry(record.ID, cause.Error(), next); err != nil {
		p.logg.Error(ctx, "record outbox delivery failure", err)
		return
	}
	p.mets.IncRetried(string(record.EventType))
	ctx = p.logg.WithField(ctx, "next_attempt_at", next.Format(time.RFC3339Nano))
	ctx = p.logg.WithField(ctx, "error", cause.Error())
	p.logg.Warn(ctx, "outbox publish failed, retry scheduled")
}

func (p *Poller) deadLetter(ctx context.Context, record models.OutboxEvent, cause error) {
	marked, err := p.repo.MarkFailed(record.ID, cause.Error())
	if err != nil {
		p.logg.Error(ctx, "mark outbox event failed", err)
		return
	}
	if !marked {
		return
	}
	p.mets.IncDeadLettered(string(record.EventType))
	ctx = p.logg.WithField(ctx, "error", cause.Error())
	p.logg.Warn(ctx, "outbox event will not be retried")
}

// Cleanup deletes published rows older than the retention window.
func (p *Poller) Cleanup(ctx context.Context) {
	deleted, err := p.repo.CleanupPublished(p.retention)
	if err != nil {
		p.logg.Error(ctx, "outbox cleanup", err)
		return
	}
	p.mets.AddCleanupDeleted(deleted)
	if deleted > 0 {
		p.logg.Info(p.logg.WithField(ctx, "deleted", deleted), "outbox cleanup removed published events")
	}
}

// backoffFor doubles the base delay per prior attempt, capped so a row with a
// large retry budget still comes back within the hour.
func (p *Poller) backoffFor(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := p.baseBackoff
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

func (p *Poller) eventFields(record models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      record.ID.String(),
		"event_type":     record.EventType,
		"aggregate_type": record.AggregateType,
		"aggregate_id":   record.AggregateID.String(),
		"retry_count":    record.RetryCount,
	}
	if record.LastError != nil {
		fields["last_error"] = *record.LastError
	}
	return fields
}
