package npc

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Manager tracks templates and all live NPC instances by ID.
// All methods are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	templates map[string]*Template
	instances map[string]*Instance
	counter   atomic.Uint64
}

// NewManager creates a Manager seeded with the given templates.
//
// Precondition: template IDs must be unique.
func NewManager(templates []*Template) (*Manager, error) {
	m := &Manager{
		templates: make(map[string]*Template),
		instances: make(map[string]*Instance),
	}
	for _, t := range templates {
		if _, dup := m.templates[t.ID]; dup {
			return nil, fmt.Errorf("npc.NewManager: duplicate template %q", t.ID)
		}
		m.templates[t.ID] = t
	}
	return m, nil
}

// Template returns the template with the given ID.
//
// Postcondition: Returns (tmpl, true) if found, or (nil, false) otherwise.
func (m *Manager) Template(id string) (*Template, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	return t, ok
}

// Spawn creates a new Instance from the named template.
//
// Precondition: templateID must name a registered template.
// Postcondition: Returns a new Instance with a unique ID.
func (m *Manager) Spawn(templateID string) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tmpl, ok := m.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("npc.Manager.Spawn: template %q not found", templateID)
	}

	n := m.counter.Add(1)
	id := fmt.Sprintf("%s-%d", tmpl.ID, n)
	inst := NewInstance(id, tmpl)
	m.instances[id] = inst
	return inst, nil
}

// Remove deletes an instance by ID.
//
// Precondition: id must be non-empty.
// Postcondition: Returns an error if the instance is not found.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.instances[id]; !ok {
		return fmt.Errorf("npc instance %q not found", id)
	}
	delete(m.instances, id)
	return nil
}

// Get returns the instance with the given ID.
//
// Postcondition: Returns (inst, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	return inst, ok
}

// Count returns the number of live instances.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}
