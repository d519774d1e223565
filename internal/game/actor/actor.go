// Package actor provides the live-entity registry shared by the arena
// subsystems: combatants, NPCs, and spectators with their location and
// consciousness state.
package actor

import (
	"fmt"
	"sync"
)

// Kind distinguishes player characters from NPCs.
type Kind string

const (
	// KindCharacter is a player-controlled combatant or spectator.
	KindCharacter Kind = "character"
	// KindNPC is a server-controlled combatant.
	KindNPC Kind = "npc"
)

// Actor is a live entity occupying a cell.
type Actor struct {
	// ID uniquely identifies this actor.
	ID string
	// Name is the display name.
	Name string
	// Kind is character or npc.
	Kind Kind
	// CellID is the cell this actor currently occupies.
	CellID string
	// Conscious reports whether the actor is awake enough to act or observe.
	Conscious bool
	// Dead reports whether the actor has been killed.
	Dead bool
	// Perception is the actor's notice-check modifier.
	Perception int
	// Sink receives output events addressed to this actor. Nil for actors
	// with no attached connection (most NPCs).
	Sink *Sink
}

// Sink buffers output lines addressed to one actor, bridging the game
// core to whatever transport the actor is attached to.
type Sink struct {
	id     string
	events chan string
	mu     sync.Mutex
	closed bool
}

// NewSink creates a Sink for the given actor ID.
//
// Precondition: id must be non-empty.
// Postcondition: Returns a Sink with an open events channel.
func NewSink(id string, bufferSize int) *Sink {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Sink{
		id:     id,
		events: make(chan string, bufferSize),
	}
}

// Push enqueues a line to the sink.
//
// Postcondition: The line is enqueued, or an error if the sink is closed or full.
func (s *Sink) Push(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sink %s is closed", s.id)
	}
	select {
	case s.events <- line:
		return nil
	default:
		return fmt.Errorf("sink %s event buffer full", s.id)
	}
}

// Events returns the read-only events channel.
func (s *Sink) Events() <-chan string {
	return s.events
}

// Close marks the sink closed and closes the events channel.
//
// Postcondition: Further Push calls return an error.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

// IsClosed reports whether the sink has been closed.
func (s *Sink) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
