package inventory

import (
	"fmt"
	"sort"
	"sync"
)

// Disposition describes how a holder carries an item.
type Disposition string

const (
	// DispositionWorn covers armor occupying a body slot.
	DispositionWorn Disposition = "worn"
	// DispositionWielded covers weapons in hand.
	DispositionWielded Disposition = "wielded"
	// DispositionHeld covers everything carried loose.
	DispositionHeld Disposition = "held"
)

// Item is one live item instance attached to a holder.
type Item struct {
	ID    string
	DefID string
	Name  string
	// Slot is the wear-profile identifier occupied while worn; empty
	// otherwise.
	Slot        string
	Disposition Disposition
}

// Equipped is one captured loadout entry: the item together with the
// disposition it had when captured. It is the unit of a preparation
// snapshot.
type Equipped struct {
	Item        *Item
	Disposition Disposition
	Slot        string
}

// Manager tracks item instances per holder. All methods are safe for
// concurrent use.
type Manager struct {
	mu       sync.RWMutex
	items    map[string]*Item           // itemID → Item
	holdings map[string]map[string]bool // holderID → set of itemIDs
	holders  map[string]string          // itemID → holderID
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		items:    make(map[string]*Item),
		holdings: make(map[string]map[string]bool),
		holders:  make(map[string]string),
	}
}

// Give attaches an item to a holder with the given disposition.
//
// Precondition: holderID must be non-empty; item must have a unique ID.
// Postcondition: the item is registered under holderID.
func (m *Manager) Give(holderID string, item *Item, disposition Disposition) error {
	if holderID == "" {
		return fmt.Errorf("inventory.Manager.Give: holderID must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[item.ID]; exists {
		return fmt.Errorf("inventory.Manager.Give: item %q already registered", item.ID)
	}
	if disposition == DispositionWorn {
		if holder := m.slotHolderLocked(holderID, item.Slot); holder != "" {
			return fmt.Errorf("inventory.Manager.Give: slot %q on %q is occupied", item.Slot, holderID)
		}
	}

	item.Disposition = disposition
	m.items[item.ID] = item
	if m.holdings[holderID] == nil {
		m.holdings[holderID] = make(map[string]bool)
	}
	m.holdings[holderID][item.ID] = true
	m.holders[item.ID] = holderID
	return nil
}

// Strip removes every item from the holder and returns the captured entries
// with their prior dispositions, ordered by item ID for determinism. The
// items remain registered but holderless until restored or deleted.
//
// Postcondition: ItemsFor(holderID) is empty.
func (m *Manager) Strip(holderID string) []Equipped {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids, ok := m.holdings[holderID]
	if !ok {
		return nil
	}

	captured := make([]Equipped, 0, len(ids))
	for id := range ids {
		item, ok := m.items[id]
		if !ok {
			continue
		}
		captured = append(captured, Equipped{
			Item:        item,
			Disposition: item.Disposition,
			Slot:        item.Slot,
		})
		delete(m.holders, id)
	}
	delete(m.holdings, holderID)

	sort.Slice(captured, func(i, j int) bool { return captured[i].Item.ID < captured[j].Item.ID })
	return captured
}

// Restore re-attaches a captured entry to the holder at its prior
// disposition.
//
// Postcondition: Returns nil and the item is held again, or an error when
// the slot is occupied or the item was deleted in the meantime.
func (m *Manager) Restore(holderID string, e Equipped) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[e.Item.ID]
	if !ok {
		return fmt.Errorf("inventory.Manager.Restore: item %q no longer exists", e.Item.ID)
	}
	if holder, held := m.holders[item.ID]; held {
		return fmt.Errorf("inventory.Manager.Restore: item %q is held by %q", item.ID, holder)
	}
	if e.Disposition == DispositionWorn {
		if holder := m.slotHolderLocked(holderID, e.Slot); holder != "" {
			return fmt.Errorf("inventory.Manager.Restore: slot %q on %q is occupied", e.Slot, holderID)
		}
	}

	item.Disposition = e.Disposition
	if m.holdings[holderID] == nil {
		m.holdings[holderID] = make(map[string]bool)
	}
	m.holdings[holderID][item.ID] = true
	m.holders[item.ID] = holderID
	return nil
}

// Delete removes an item instance entirely, detaching it from any holder.
//
// Postcondition: the item is gone; deleting an unknown item is a no-op.
func (m *Manager) Delete(itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if holderID, ok := m.holders[itemID]; ok {
		delete(m.holdings[holderID], itemID)
		if len(m.holdings[holderID]) == 0 {
			delete(m.holdings, holderID)
		}
		delete(m.holders, itemID)
	}
	delete(m.items, itemID)
}

// ItemsFor returns a snapshot of the holder's items, ordered by item ID.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (m *Manager) ItemsFor(holderID string) []*Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids, ok := m.holdings[holderID]
	if !ok {
		return []*Item{}
	}
	out := make([]*Item, 0, len(ids))
	for id := range ids {
		if item, ok := m.items[id]; ok {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Exists reports whether the item instance is still registered.
func (m *Manager) Exists(itemID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[itemID]
	return ok
}

// slotHolderLocked returns the id of the item occupying slot on holderID,
// or "" when the slot is free.
func (m *Manager) slotHolderLocked(holderID, slot string) string {
	for id := range m.holdings[holderID] {
		item, ok := m.items[id]
		if !ok {
			continue
		}
		if item.Disposition == DispositionWorn && item.Slot == slot {
			return id
		}
	}
	return ""
}
