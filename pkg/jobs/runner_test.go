package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterTaskValidation(t *testing.T) {
	runner := NewTimerRunner(context.Background())
	defer runner.Shutdown(context.Background())

	if err := runner.RegisterTask("", func(context.Context) {}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := runner.RegisterTask("job", nil); err == nil {
		t.Fatal("expected error for nil func")
	}
	if err := runner.RegisterTask("job", func(context.Context) {}); err != nil {
		t.Fatalf("RegisterTask returned error: %v", err)
	}
	if err := runner.RegisterTask("job", func(context.Context) {}); err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestEnqueueRunsTask(t *testing.T) {
	runner := NewTimerRunner(context.Background())
	defer runner.Shutdown(context.Background())

	done := make(chan struct{})
	if err := runner.RegisterTask("job", func(context.Context) {
		close(done)
	}); err != nil {
		t.Fatalf("RegisterTask returned error: %v", err)
	}
	if err := runner.Enqueue("job", 0); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestEnqueueUnknownTask(t *testing.T) {
	runner := NewTimerRunner(context.Background())
	defer runner.Shutdown(context.Background())

	if err := runner.Enqueue("missing", 0); err == nil {
		t.Fatal("expected error for unregistered task")
	}
}

func TestTaskCanRescheduleItself(t *testing.T) {
	runner := NewTimerRunner(context.Background())
	defer runner.Shutdown(context.Background())

	var runs atomic.Int32
	done := make(chan struct{})
	if err := runner.RegisterTask("job", func(context.Context) {
		if runs.Add(1) < 3 {
			_ = runner.Enqueue("job", time.Millisecond)
			return
		}
		close(done)
	}); err != nil {
		t.Fatalf("RegisterTask returned error: %v", err)
	}
	if err := runner.Enqueue("job", 0); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("task ran %d times, want 3", runs.Load())
	}
}

func TestShutdownDropsPendingTimers(t *testing.T) {
	runner := NewTimerRunner(context.Background())

	var runs atomic.Int32
	if err := runner.RegisterTask("job", func(context.Context) {
		runs.Add(1)
	}); err != nil {
		t.Fatalf("RegisterTask returned error: %v", err)
	}
	if err := runner.Enqueue("job", time.Hour); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	if err := runner.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if got := runs.Load(); got != 0 {
		t.Fatalf("pending task ran %d times after shutdown", got)
	}
	if err := runner.Enqueue("job", 0); err != ErrRunnerClosed {
		t.Fatalf("expected ErrRunnerClosed, got %v", err)
	}
}

func TestShutdownWaitsForInFlightTask(t *testing.T) {
	runner := NewTimerRunner(context.Background())

	started := make(chan struct{})
	finished := make(chan struct{})
	if err := runner.RegisterTask("job", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(finished)
	}); err != nil {
		t.Fatalf("RegisterTask returned error: %v", err)
	}
	if err := runner.Enqueue("job", 0); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := runner.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	select {
	case <-finished:
	default:
		t.Fatal("shutdown returned before the in-flight task finished")
	}
}
