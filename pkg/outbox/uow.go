package outbox

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/martinreyes/filehub-backend/pkg/db/models"
	"github.com/martinreyes/filehub-backend/pkg/eventbus"
	"github.com/martinreyes/filehub-backend/pkg/events"
	"github.com/martinreyes/filehub-backend/pkg/logger"
)

// recordWriter is the slice of the repository the unit of work needs.
type recordWriter interface {
	SaveMany(tx *gorm.DB, records []*models.OutboxEvent) error
}

// FactoryParams configure a unit-of-work factory.
type FactoryParams struct {
	DB         *gorm.DB
	Repository recordWriter
	Bus        eventbus.Bus
	Logger     *logger.Logger
	MaxRetries int
}

// Factory opens units of work over the shared connection.
type Factory struct {
	db         *gorm.DB
	repo       recordWriter
	bus        eventbus.Bus
	logg       *logger.Logger
	maxRetries int
}

// NewFactory validates the wiring. The bus is optional: without one, direct
// events are dropped after commit (durable events are unaffected).
func NewFactory(params FactoryParams) (*Factory, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Factory{
		db:         params.DB,
		repo:       params.Repository,
		bus:        params.Bus,
		logg:       params.Logger,
		maxRetries: maxRetries,
	}, nil
}

// Begin opens a transaction scoped to one unit of work.
func (f *Factory) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx := f.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return &UnitOfWork{
		tx:         tx,
		repo:       f.repo,
		bus:        f.bus,
		logg:       f.logg,
		maxRetries: f.maxRetries,
	}, nil
}

// Execute runs fn inside a unit of work: commit on nil error, rollback
// otherwise. The transaction is always released.
func (f *Factory) Execute(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	uow, err := f.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()

	if err := fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit(ctx)
}

// UnitOfWork scopes one atomic business write plus its durable events.
// Aggregates registered via Track have their events harvested at commit:
// durable ones become outbox rows on the same transaction, direct ones are
// published in-process only after the commit succeeds.
type UnitOfWork struct {
	tx         *gorm.DB
	repo       recordWriter
	bus        eventbus.Bus
	logg       *logger.Logger
	maxRetries int
	tracked    []events.Aggregate
	committed  bool
	rolledBack bool
}

// Tx exposes the open transaction so business repositories write on it.
func (u *UnitOfWork) Tx() *gorm.DB {
	return u.tx
}

// Track registers an aggregate for event harvesting at commit time.
// Tracking the same instance twice is a no-op.
func (u *UnitOfWork) Track(aggregate events.Aggregate) {
	if aggregate == nil {
		return
	}
	for _, existing := range u.tracked {
		if existing == aggregate {
			return
		}
	}
	u.tracked = append(u.tracked, aggregate)
}

// Commit harvests events from tracked aggregates, persists the durable ones
// on the same transaction, commits, then publishes direct events
// best-effort. A direct-publish failure is logged, never surfaced: the data
// is already durable.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.rolledBack {
		return errors.New("unit of work already rolled back")
	}
	if u.committed {
		return nil
	}

	records, direct, err := u.harvest()
	if err != nil {
		_ = u.Rollback()
		return err
	}

	if len(records) > 0 {
		if err := u.repo.SaveMany(u.tx, records); err != nil {
			_ = u.Rollback()
			return fmt.Errorf("persist outbox rows: %w", err)
		}
	}

	if err := u.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	u.committed = true

	if u.bus != nil && len(direct) > 0 {
		if err := u.bus.PublishMany(ctx, direct); err != nil {
			u.logg.Warn(u.logg.WithField(ctx, "error", err.Error()), "direct event publish failed after commit")
		}
	}
	return nil
}

// Rollback discards the transaction and every tracked aggregate's pending
// events. No events survive a rolled-back unit of work.
func (u *UnitOfWork) Rollback() error {
	if u.committed || u.rolledBack {
		return nil
	}
	u.rolledBack = true
	for _, aggregate := range u.tracked {
		aggregate.ClearEvents()
	}
	u.tracked = nil
	return u.tx.Rollback().Error
}

// Close releases the transaction if neither Commit nor Rollback ran.
func (u *UnitOfWork) Close() {
	if !u.committed && !u.rolledBack {
		_ = u.Rollback()
	}
}

func (u *UnitOfWork) harvest() ([]*models.OutboxEvent, []events.Event, error) {
	var records []*models.OutboxEvent
	var direct []events.Event

	for _, aggregate := range u.tracked {
		for _, event := range aggregate.Events() {
			durable, ok := event.(events.Durable)
			if !ok {
				direct = append(direct, event)
				continue
			}
			record, err := NewRecord(aggregate, durable, u.maxRetries)
			if err != nil {
				return nil, nil, fmt.Errorf("harvest %s: %w", aggregate.AggregateType(), err)
			}
			records = append(records, record)
		}
		aggregate.ClearEvents()
	}
	u.tracked = nil
	return records, direct, nil
}
