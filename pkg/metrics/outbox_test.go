package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOutboxMetrics(reg)
	eventType := "user.created"
	metrics.IncPublished(eventType)
	metrics.IncPublished(eventType)
	metrics.IncRetried(eventType)
	metrics.IncDeadLettered(eventType)
	metrics.ObserveBatchDuration(120 * time.Millisecond)
	metrics.AddCleanupDeleted(5)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "outbox_published", "event_type", eventType); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 2 {
		t.Fatalf("expected published=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_retried", "event_type", eventType); err != nil {
		t.Fatalf("fetch retried: %v", err)
	} else if got != 1 {
		t.Fatalf("expected retried=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_dead_lettered", "event_type", eventType); err != nil {
		t.Fatalf("fetch dead lettered: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dead_lettered=1, got %f", got)
	}

	duration := findMetricFamily(mfs, "outbox_batch_duration_seconds")
	if duration == nil {
		t.Fatal("batch duration histogram not exported")
	}
	if got := duration.GetMetric()[0].GetHistogram().GetSampleSum(); got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	cleanup := findMetricFamily(mfs, "outbox_cleanup_deleted")
	if cleanup == nil {
		t.Fatal("cleanup counter not exported")
	}
	if got := cleanup.GetMetric()[0].GetCounter().GetValue(); got != 5 {
		t.Fatalf("expected cleanup=5, got %f", got)
	}
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var metrics *OutboxMetrics
	metrics.IncPublished("user.created")
	metrics.ObserveBatchDuration(time.Second)
	metrics.AddCleanupDeleted(3)

	empty := NewOutboxMetrics(nil)
	empty.IncRetried("user.created")
	empty.IncDeadLettered("user.created")
	empty.AddCleanupDeleted(-1)
}
