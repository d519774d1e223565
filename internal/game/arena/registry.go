package arena

import (
	"fmt"
	"sync"
	"time"
)

// Registry tracks all live events and event types.
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	events map[string]*Event     // eventID → Event
	types  map[string]*EventType // typeID → EventType
}

// NewRegistry creates a Registry over the given event types.
//
// Precondition: every type must pass Validate.
// Postcondition: Returns a Registry with all types indexed, or an error on
// an invalid or duplicate type.
func NewRegistry(types []*EventType) (*Registry, error) {
	r := &Registry{
		events: make(map[string]*Event),
		types:  make(map[string]*EventType, len(types)),
	}
	for _, t := range types {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("arena.NewRegistry: %w", err)
		}
		if _, exists := r.types[t.ID]; exists {
			return nil, fmt.Errorf("arena.NewRegistry: duplicate event type ID %q", t.ID)
		}
		r.types[t.ID] = t
	}
	return r, nil
}

// AddEvent registers an event.
//
// Postcondition: Returns an error if the ID is already registered or the
// event's type is unknown.
func (r *Registry) AddEvent(e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[e.ID]; exists {
		return fmt.Errorf("event %q already registered", e.ID)
	}
	if _, ok := r.types[e.TypeID]; !ok {
		return fmt.Errorf("event %q references unknown type %q", e.ID, e.TypeID)
	}
	r.events[e.ID] = e
	return nil
}

// GetEvent returns the event with the given ID.
//
// Postcondition: Returns (event, true) if found, or (nil, false) otherwise.
func (r *Registry) GetEvent(id string) (*Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	return e, ok
}

// GetType returns the event type with the given ID.
//
// Postcondition: Returns (type, true) if found, or (nil, false) otherwise.
func (r *Registry) GetType(id string) (*EventType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	return t, ok
}

// TypeOf returns the event type of the given event.
//
// Postcondition: Returns (type, true) when the event's type is registered.
func (r *Registry) TypeOf(e *Event) (*EventType, bool) {
	return r.GetType(e.TypeID)
}

// AllTypes returns all registered event types.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (r *Registry) AllTypes() []*EventType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*EventType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	return out
}

// AllEvents returns all registered events.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (r *Registry) AllEvents() []*Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e)
	}
	return out
}

// ArenaBusy reports whether another event in the same arena is mid-flight:
// in a state strictly between Scheduled and Completed.
func (r *Registry) ArenaBusy(arenaID, excludeEventID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.events {
		if e.ID == excludeEventID || e.ArenaID != arenaID {
			continue
		}
		if e.State > StateScheduled && e.State < StateCompleted {
			return true
		}
	}
	return false
}

// HasEventNear reports whether an event of the given type already exists with
// a scheduled time within window of target.
func (r *Registry) HasEventNear(typeID string, target time.Time, window time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.events {
		if e.TypeID != typeID || e.State == StateAborted {
			continue
		}
		diff := e.ScheduledAt.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			return true
		}
	}
	return false
}
