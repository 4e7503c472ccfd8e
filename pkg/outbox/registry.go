package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/martinreyes/filehub-backend/pkg/enums"
	"github.com/martinreyes/filehub-backend/pkg/events"
)

// ErrUnknownEventType means no constructor is registered for a stored event's
// type name. This is permanent: no retry will make the type known without a
// deploy, so the poller dead-letters the row immediately.
var ErrUnknownEventType = errors.New("unknown event type")

// Constructor rehydrates a typed event from its stored payload.
type Constructor func(payload json.RawMessage) (events.Event, error)

// Registry maps stored event type names back to constructors. Populated once
// at startup and injected wherever rehydration is needed.
type Registry struct {
	mtx          sync.RWMutex
	constructors map[enums.OutboxEventType]Constructor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[enums.OutboxEventType]Constructor)}
}

// Register stores a constructor for the given event type. Registering the
// same type twice replaces the previous constructor.
func (r *Registry) Register(eventType enums.OutboxEventType, constructor Constructor) {
	if constructor == nil {
		return
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.constructors[eventType] = constructor
}

// Create rehydrates an event from its type name and payload.
func (r *Registry) Create(eventType enums.OutboxEventType, payload json.RawMessage) (events.Event, error) {
	r.mtx.RLock()
	constructor, ok := r.constructors[eventType]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	event, err := constructor(payload)
	if err != nil {
		return nil, fmt.Errorf("rehydrate %s: %w", eventType, err)
	}
	return event, nil
}

// Types returns the registered type names, for startup logging.
func (r *Registry) Types() []enums.OutboxEventType {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	types := make([]enums.OutboxEventType, 0, len(r.constructors))
	for eventType := range r.constructors {
		types = append(types, eventType)
	}
	return types
}
