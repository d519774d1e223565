package world

import (
	"fmt"
	"sync"
)

// Manager provides thread-safe access to the loaded arenas.
// It indexes cells across all arenas for O(1) lookup by cell ID.
type Manager struct {
	mu     sync.RWMutex
	arenas map[string]*CombatArena
	cells  map[string]*Cell
}

// NewManager creates a Manager from the given arenas.
//
// Precondition: every arena must pass Validate.
// Postcondition: Returns a Manager with all cells indexed by ID, or an error
// on duplicate arena or cell IDs.
func NewManager(arenas []*CombatArena) (*Manager, error) {
	m := &Manager{
		arenas: make(map[string]*CombatArena, len(arenas)),
		cells:  make(map[string]*Cell),
	}

	for _, a := range arenas {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("world.NewManager: %w", err)
		}
		if _, exists := m.arenas[a.ID]; exists {
			return nil, fmt.Errorf("duplicate arena ID: %q", a.ID)
		}
		m.arenas[a.ID] = a
		for id, cell := range a.Cells {
			if existing, exists := m.cells[id]; exists {
				return nil, fmt.Errorf("duplicate cell ID %q: in arena %q and %q", id, existing.ArenaID, a.ID)
			}
			m.cells[id] = cell
		}
	}

	return m, nil
}

// GetArena returns the arena with the given ID.
//
// Postcondition: Returns (arena, true) if found, or (nil, false) otherwise.
func (m *Manager) GetArena(id string) (*CombatArena, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.arenas[id]
	return a, ok
}

// GetCell returns the cell with the given ID.
//
// Postcondition: Returns (cell, true) if found, or (nil, false) otherwise.
func (m *Manager) GetCell(id string) (*Cell, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cells[id]
	return c, ok
}

// ArenaForCell returns the arena owning the given cell ID.
//
// Postcondition: Returns (arena, true) if the cell exists, or (nil, false) otherwise.
func (m *Manager) ArenaForCell(cellID string) (*CombatArena, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cells[cellID]
	if !ok {
		return nil, false
	}
	a, ok := m.arenas[c.ArenaID]
	return a, ok
}

// AllArenas returns all loaded arenas.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (m *Manager) AllArenas() []*CombatArena {
	m.mu.RLock()
	defer m.mu.RUnlock()
	arenas := make([]*CombatArena, 0, len(m.arenas))
	for _, a := range m.arenas {
		arenas = append(arenas, a)
	}
	return arenas
}

// CellCount returns the total number of cells across all arenas.
func (m *Manager) CellCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cells)
}
