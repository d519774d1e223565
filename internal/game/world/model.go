// Package world provides the arena world model: combat arenas and their cells.
package world

import "fmt"

// CellKind classifies the role a cell plays within a combat arena.
type CellKind string

const (
	// KindFightFloor is the cell where the bout itself takes place.
	KindFightFloor CellKind = "fight_floor"
	// KindWaiting is a per-side staging cell combatants occupy before the bout.
	KindWaiting CellKind = "waiting"
	// KindObservation is a spectator cell linked to the fight floor.
	KindObservation CellKind = "observation"
	// KindCommon is any other cell belonging to the arena (entry hall, etc.).
	KindCommon CellKind = "common"
)

// Cell represents one location inside a combat arena.
type Cell struct {
	// ID uniquely identifies this cell within the world.
	ID string
	// ArenaID identifies the arena this cell belongs to.
	ArenaID string
	// Title is the short display name of the cell.
	Title string
	// Description is the multi-line description shown to occupants.
	Description string
	// Kind is the cell's role within the arena.
	Kind CellKind
	// SideIndex is the side a waiting cell stages for. -1 for non-waiting cells.
	SideIndex int
	// Properties holds environment tags (lighting, atmosphere, etc.).
	Properties map[string]string
}

// CombatArena aggregates the cells, currency, and house account of one venue.
type CombatArena struct {
	// ID uniquely identifies this arena.
	ID string
	// Name is the display name of the arena.
	Name string
	// FightFloorID is the cell ID of the fight floor.
	FightFloorID string
	// WaitingCellIDs maps side index to that side's waiting cell ID.
	WaitingCellIDs []string
	// ObservationCellIDs lists spectator cells linked to the fight floor.
	ObservationCellIDs []string
	// Currency is the coin denomination wagers are placed in.
	Currency string
	// AccountID is the house bank account backing this arena's bets.
	AccountID string
	// Cells contains all cells in this arena, keyed by cell ID.
	Cells map[string]*Cell
}

// HasObservationRooms reports whether any observation cell is configured.
func (a *CombatArena) HasObservationRooms() bool {
	return len(a.ObservationCellIDs) > 0
}

// WaitingCellFor returns the waiting cell ID for the given side index.
//
// Postcondition: Returns ("", false) when the side has no waiting cell.
func (a *CombatArena) WaitingCellFor(sideIndex int) (string, bool) {
	if sideIndex < 0 || sideIndex >= len(a.WaitingCellIDs) {
		return "", false
	}
	id := a.WaitingCellIDs[sideIndex]
	return id, id != ""
}

// IsObservationCell reports whether cellID is one of this arena's observation cells.
func (a *CombatArena) IsObservationCell(cellID string) bool {
	for _, id := range a.ObservationCellIDs {
		if id == cellID {
			return true
		}
	}
	return false
}

// Validate checks arena invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (a *CombatArena) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("arena ID must not be empty")
	}
	if a.Name == "" {
		return fmt.Errorf("arena %q: name must not be empty", a.ID)
	}
	if a.FightFloorID == "" {
		return fmt.Errorf("arena %q: fight_floor must not be empty", a.ID)
	}
	if a.AccountID == "" {
		return fmt.Errorf("arena %q: account must not be empty", a.ID)
	}
	if len(a.Cells) == 0 {
		return fmt.Errorf("arena %q: must contain at least one cell", a.ID)
	}
	floor, ok := a.Cells[a.FightFloorID]
	if !ok {
		return fmt.Errorf("arena %q: fight_floor %q not found in cells", a.ID, a.FightFloorID)
	}
	if floor.Kind != KindFightFloor {
		return fmt.Errorf("arena %q: cell %q is %q, expected %q", a.ID, floor.ID, floor.Kind, KindFightFloor)
	}
	for id, cell := range a.Cells {
		if cell.ID != id {
			return fmt.Errorf("arena %q: cell key %q does not match cell ID %q", a.ID, id, cell.ID)
		}
		if cell.Title == "" {
			return fmt.Errorf("arena %q: cell %q: title must not be empty", a.ID, id)
		}
	}
	for side, waitID := range a.WaitingCellIDs {
		if waitID == "" {
			continue
		}
		cell, ok := a.Cells[waitID]
		if !ok {
			return fmt.Errorf("arena %q: waiting cell %q for side %d not found", a.ID, waitID, side)
		}
		if cell.Kind != KindWaiting {
			return fmt.Errorf("arena %q: cell %q is %q, expected %q", a.ID, waitID, cell.Kind, KindWaiting)
		}
	}
	for _, obsID := range a.ObservationCellIDs {
		cell, ok := a.Cells[obsID]
		if !ok {
			return fmt.Errorf("arena %q: observation cell %q not found", a.ID, obsID)
		}
		if cell.Kind != KindObservation {
			return fmt.Errorf("arena %q: cell %q is %q, expected %q", a.ID, obsID, cell.Kind, KindObservation)
		}
	}
	return nil
}
