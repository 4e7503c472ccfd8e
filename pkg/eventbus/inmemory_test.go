package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/martinreyes/filehub-backend/pkg/enums"
	"github.com/martinreyes/filehub-backend/pkg/events"
)

type loginEvent struct {
	events.Base
}

func (loginEvent) EventType() enums.OutboxEventType { return enums.EventUserLoggedIn }

type createdEvent struct {
	events.Base
}

func (createdEvent) EventType() enums.OutboxEventType { return enums.EventUserCreated }

func TestInMemoryBusRoutesByEventType(t *testing.T) {
	bus := NewInMemoryBus()
	var loginCalls, createdCalls int
	bus.Subscribe(enums.EventUserLoggedIn, func(ctx context.Context, event events.Event) error {
		loginCalls++
		return nil
	})
	bus.Subscribe(enums.EventUserCreated, func(ctx context.Context, event events.Event) error {
		createdCalls++
		return nil
	})

	if err := bus.Publish(context.Background(), loginEvent{Base: events.NewBase()}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if loginCalls != 1 || createdCalls != 0 {
		t.Fatalf("expected only login handler to fire, got login=%d created=%d", loginCalls, createdCalls)
	}
}

func TestInMemoryBusOneFailingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryBus()
	var secondRan bool
	bus.Subscribe(enums.EventUserLoggedIn, func(ctx context.Context, event events.Event) error {
		return errors.New("boom")
	})
	bus.Subscribe(enums.EventUserLoggedIn, func(ctx context.Context, event events.Event) error {
		secondRan = true
		return nil
	})

	err := bus.Publish(context.Background(), loginEvent{Base: events.NewBase()})
	if err == nil {
		t.Fatal("expected aggregated handler error")
	}
	if !secondRan {
		t.Fatal("second handler should run despite first failing")
	}
}

func TestInMemoryBusNoSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus()
	if err := bus.Publish(context.Background(), createdEvent{Base: events.NewBase()}); err != nil {
		t.Fatalf("publish without subscribers should succeed: %v", err)
	}
}

func TestIsNonRetryable(t *testing.T) {
	wrapped := NewNonRetryableError(errors.New("unknown event type"))
	if !IsNonRetryable(wrapped) {
		t.Fatal("expected wrapped error to be non-retryable")
	}
	if IsNonRetryable(errors.New("timeout")) {
		t.Fatal("plain errors are retryable")
	}
}
