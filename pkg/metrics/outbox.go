package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records delivery outcomes for the outbox poller.
type OutboxMetrics struct {
	published     *prometheus.CounterVec
	retried       *prometheus.CounterVec
	deadLettered  *prometheus.CounterVec
	batchDuration prometheus.Histogram
	cleanupTotal  prometheus.Counter
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published",
		Help: "Outbox events published to the bus.",
	}, []string{"event_type"})
	retried := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_retried",
		Help: "Outbox events rescheduled after a transient publish failure.",
	}, []string{"event_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_dead_lettered",
		Help: "Outbox events marked failed.",
	}, []string{"event_type"})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox delivery batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	cleanupTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_cleanup_deleted",
		Help: "Published outbox rows removed by cleanup.",
	})
	reg.MustRegister(published, retried, deadLettered, batchDuration, cleanupTotal)
	return &OutboxMetrics{
		published:     published,
		retried:       retried,
		deadLettered:  deadLettered,
		batchDuration: batchDuration,
		cleanupTotal:  cleanupTotal,
	}
}

// IncPublished increments the published counter for the event type.
func (o *OutboxMetrics) IncPublished(eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncRetried increments the retry counter for the event type.
func (o *OutboxMetrics) IncRetried(eventType string) {
	if o == nil || o.retried == nil {
		return
	}
	o.retried.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDeadLettered increments the dead-letter counter for the event type.
func (o *OutboxMetrics) IncDeadLettered(eventType string) {
	if o == nil || o.deadLettered == nil {
		return
	}
	o.deadLettered.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// ObserveBatchDuration records how long one delivery batch took.
func (o *OutboxMetrics) ObserveBatchDuration(duration time.Duration) {
	if o == nil || o.batchDuration == nil {
		return
	}
	o.batchDuration.Observe(duration.Seconds())
}

// AddCleanupDeleted adds the number of rows removed by one cleanup pass.
func (o *OutboxMetrics) AddCleanupDeleted(count int64) {
	if o == nil || o.cleanupTotal == nil {
		return
	}
	if count < 0 {
		return
	}
	o.cleanupTotal.Add(float64(count))
}
