package outbox

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/martinreyes/filehub-backend/pkg/enums"
	"github.com/martinreyes/filehub-backend/pkg/events"
)

func TestRegistryCreateRoundTrip(t *testing.T) {
	registry := NewRegistry()
	registry.Register(enums.EventUserCreated, func(payload json.RawMessage) (events.Event, error) {
		var event recordTestEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	})

	payload := []byte(`{"email":"a@b.test"}`)
	event, err := registry.Create(enums.EventUserCreated, payload)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	typed, ok := event.(recordTestEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", event)
	}
	if typed.Email != "a@b.test" {
		t.Fatalf("email = %q", typed.Email)
	}
}

func TestRegistryUnknownType(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Create(enums.EventFileDeleted, []byte(`{}`))
	if !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
	if !strings.Contains(err.Error(), string(enums.EventFileDeleted)) {
		t.Fatalf("error should name the type: %v", err)
	}
}

func TestRegistryConstructorErrorIsWrapped(t *testing.T) {
	registry := NewRegistry()
	cause := errors.New("bad payload")
	registry.Register(enums.EventUserCreated, func(json.RawMessage) (events.Event, error) {
		return nil, cause
	})

	_, err := registry.Create(enums.EventUserCreated, []byte(`{`))
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped constructor error, got %v", err)
	}
}

func TestRegistryReplacesOnReRegister(t *testing.T) {
	registry := NewRegistry()
	registry.Register(enums.EventUserCreated, func(json.RawMessage) (events.Event, error) {
		return nil, errors.New("old constructor")
	})
	registry.Register(enums.EventUserCreated, func(json.RawMessage) (events.Event, error) {
		return recordTestEvent{}, nil
	})

	if _, err := registry.Create(enums.EventUserCreated, nil); err != nil {
		t.Fatalf("expected replacement constructor to win: %v", err)
	}
	if got := len(registry.Types()); got != 1 {
		t.Fatalf("types = %d, want 1", got)
	}
}
