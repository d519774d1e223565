package actor

import (
	"fmt"
	"sync"
)

// Manager tracks all live actors by ID and by cell.
// All methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	actors   map[string]*Actor          // actorID → Actor
	cellSets map[string]map[string]bool // cellID → set of actorIDs
}

// NewManager creates an empty actor Manager.
func NewManager() *Manager {
	return &Manager{
		actors:   make(map[string]*Actor),
		cellSets: make(map[string]map[string]bool),
	}
}

// Add registers an actor in its current cell.
//
// Precondition: a must be non-nil with non-empty ID and CellID.
// Postcondition: Returns an error if the ID is already registered.
func (m *Manager) Add(a *Actor) error {
	if a == nil {
		return fmt.Errorf("actor.Manager.Add: actor must not be nil")
	}
	if a.ID == "" || a.CellID == "" {
		return fmt.Errorf("actor.Manager.Add: ID and CellID must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.actors[a.ID]; exists {
		return fmt.Errorf("actor %q already registered", a.ID)
	}
	m.actors[a.ID] = a
	if m.cellSets[a.CellID] == nil {
		m.cellSets[a.CellID] = make(map[string]bool)
	}
	m.cellSets[a.CellID][a.ID] = true
	return nil
}

// Remove deletes an actor by ID.
//
// Postcondition: Returns an error if the actor is not found.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.actors[id]
	if !ok {
		return fmt.Errorf("actor %q not found", id)
	}

	if cs, ok := m.cellSets[a.CellID]; ok {
		delete(cs, id)
		if len(cs) == 0 {
			delete(m.cellSets, a.CellID)
		}
	}
	delete(m.actors, id)
	if a.Sink != nil {
		_ = a.Sink.Close()
	}
	return nil
}

// Get returns the actor with the given ID.
//
// Postcondition: Returns (actor, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id string) (*Actor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actors[id]
	return a, ok
}

// ActorsInCell returns a snapshot of all actors in cellID.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (m *Manager) ActorsInCell(cellID string) []*Actor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids, ok := m.cellSets[cellID]
	if !ok {
		return []*Actor{}
	}

	out := make([]*Actor, 0, len(ids))
	for id := range ids {
		if a, ok := m.actors[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Move relocates an actor from its current cell to newCellID.
//
// Precondition: id must identify an existing actor; newCellID must be non-empty.
// Postcondition: actor.CellID equals newCellID; cell index is updated accordingly.
func (m *Manager) Move(id, newCellID string) error {
	if newCellID == "" {
		return fmt.Errorf("actor.Manager.Move: newCellID must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.actors[id]
	if !ok {
		return fmt.Errorf("actor.Manager.Move: actor %q not found", id)
	}

	oldCellID := a.CellID
	if cs, ok := m.cellSets[oldCellID]; ok {
		delete(cs, id)
		if len(cs) == 0 {
			delete(m.cellSets, oldCellID)
		}
	}

	a.CellID = newCellID
	if m.cellSets[newCellID] == nil {
		m.cellSets[newCellID] = make(map[string]bool)
	}
	m.cellSets[newCellID][id] = true

	return nil
}
