package npc

import (
	"time"

	"github.com/cory-johannsen/arena/internal/game/inventory"
)

// PrepSnapshot records everything needed to put a drafted NPC back the way
// it was: the cell it came from and every item it had equipped, with prior
// dispositions. Snapshots live in an explicit per-NPC table on the Service,
// keyed by NPC id, and are discarded on return.
type PrepSnapshot struct {
	EventID      string
	SideIndex    int
	Class        string
	OriginCellID string
	// Items is empty for bring-your-own events, where the loadout stays on
	// the NPC.
	Items     []inventory.Equipped
	CreatedAt time.Time
}
