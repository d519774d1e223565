package npc

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/actor"
	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/game/inventory"
	"github.com/cory-johannsen/arena/internal/game/world"
	"github.com/cory-johannsen/arena/internal/scripting"
)

// Service drafts NPCs into arena events and puts them back afterward. It
// owns the preparation snapshot table: an explicit NPC-id keyed map, one
// snapshot per drafted NPC, discarded on return.
type Service struct {
	mu        sync.Mutex
	npcs      *Manager
	actors    *actor.Manager
	world     *world.Manager
	items     *inventory.Manager
	scripts   *scripting.Manager
	registry  *arena.Registry
	logger    *zap.Logger
	now       func() time.Time
	snapshots map[string]*PrepSnapshot
}

// NewService creates the NPC drafting service.
//
// Precondition: all collaborators must be non-nil.
func NewService(npcs *Manager, actors *actor.Manager, worldMgr *world.Manager, items *inventory.Manager, scripts *scripting.Manager, registry *arena.Registry, logger *zap.Logger) *Service {
	return &Service{
		npcs:      npcs,
		actors:    actors,
		world:     worldMgr,
		items:     items,
		scripts:   scripts,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
		snapshots: make(map[string]*PrepSnapshot),
	}
}

// AutoFill asks the side's loader hook for up to slotsNeeded NPC combatants
// and spawns them at their home cells. No hook means no candidates; a hook
// returning unknown template ids degrades to fewer candidates.
//
// Postcondition: Returns a participant entry per spawned NPC (may be empty).
func (s *Service) AutoFill(ev *arena.Event, sideIndex, slotsNeeded int) ([]arena.Participant, error) {
	t, ok := s.registry.TypeOf(ev)
	if !ok {
		return nil, fmt.Errorf("npc.Service.AutoFill: event %q has unknown type %q", ev.ID, ev.TypeID)
	}
	side, ok := t.SideByIndex(sideIndex)
	if !ok {
		return nil, fmt.Errorf("npc.Service.AutoFill: side %d is not defined on %q", sideIndex, t.ID)
	}
	if side.LoaderHook == "" || slotsNeeded <= 0 {
		return nil, nil
	}

	templateIDs := s.scripts.CallLoader(ev.ArenaID, side.LoaderHook, s.boutContext(ev, t, sideIndex), slotsNeeded)

	var drafted []arena.Participant
	for _, templateID := range templateIDs {
		inst, err := s.npcs.Spawn(templateID)
		if err != nil {
			s.logger.Warn("loader hook named unknown template",
				zap.String("event", ev.ID),
				zap.String("template", templateID),
				zap.Error(err),
			)
			continue
		}
		if err := s.actors.Add(&actor.Actor{
			ID:         inst.ID,
			Name:       inst.Name,
			Kind:       actor.KindNPC,
			CellID:     inst.HomeCellID,
			Conscious:  true,
			Perception: inst.Perception,
		}); err != nil {
			_ = s.npcs.Remove(inst.ID)
			s.logger.Warn("spawned npc could not be registered",
				zap.String("event", ev.ID),
				zap.String("npc", inst.ID),
				zap.Error(err),
			)
			continue
		}
		drafted = append(drafted, arena.Participant{
			ActorID:   inst.ID,
			SideIndex: sideIndex,
			Class:     inst.Class,
			StageName: inst.StageName,
		})
	}
	return drafted, nil
}

// Prepare attaches (or reuses) a preparation snapshot for the NPC keyed by
// event id. Unless the event type is bring-your-own, every equipped item is
// captured and removed so the NPC enters in a neutral loadout. The NPC is
// then relocated to the side's waiting cell.
//
// Postcondition: a snapshot exists for the NPC; the NPC occupies the side's
// waiting cell.
func (s *Service) Prepare(actorID string, ev *arena.Event, sideIndex int, class string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actors.Get(actorID)
	if !ok {
		return fmt.Errorf("npc.Service.Prepare: actor %q not found", actorID)
	}
	t, ok := s.registry.TypeOf(ev)
	if !ok {
		return fmt.Errorf("npc.Service.Prepare: event %q has unknown type %q", ev.ID, ev.TypeID)
	}
	ca, ok := s.world.GetArena(ev.ArenaID)
	if !ok {
		return fmt.Errorf("npc.Service.Prepare: arena %q not found", ev.ArenaID)
	}
	waitingCell, ok := ca.WaitingCellFor(sideIndex)
	if !ok {
		return fmt.Errorf("npc.Service.Prepare: arena %q has no waiting cell for side %d", ev.ArenaID, sideIndex)
	}

	snap, ok := s.snapshots[actorID]
	if ok && snap.EventID != ev.ID {
		return fmt.Errorf("npc.Service.Prepare: %q is already committed to event %q", actorID, snap.EventID)
	}
	if !ok {
		snap = &PrepSnapshot{
			EventID:      ev.ID,
			SideIndex:    sideIndex,
			Class:        class,
			OriginCellID: a.CellID,
			CreatedAt:    s.now(),
		}
		if !t.BringYourOwn {
			snap.Items = s.items.Strip(actorID)
		}
		s.snapshots[actorID] = snap
	}

	if err := s.actors.Move(actorID, waitingCell); err != nil {
		return fmt.Errorf("npc.Service.Prepare: %w", err)
	}
	return nil
}

// OutfitSide runs the side's outfit hook, if configured.
func (s *Service) OutfitSide(ev *arena.Event, sideIndex int) {
	t, ok := s.registry.TypeOf(ev)
	if !ok {
		return
	}
	side, ok := t.SideByIndex(sideIndex)
	if !ok || side.OutfitHook == "" {
		return
	}
	s.scripts.CallOutfit(ev.ArenaID, side.OutfitHook, s.boutContext(ev, t, sideIndex))
}

// Return restores one drafted NPC: revive at the captured origin when
// resurrect is set and the NPC died, re-equip every captured item on a
// best-effort basis (items that cannot be restored are deleted, never left
// dangling), move the NPC home, and discard the snapshot.
//
// Postcondition: no snapshot remains for the NPC.
func (s *Service) Return(actorID string, ev *arena.Event, resurrect bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.returnLocked(actorID, ev, resurrect)
}

func (s *Service) returnLocked(actorID string, ev *arena.Event, resurrect bool) error {
	snap, ok := s.snapshots[actorID]
	if !ok || snap.EventID != ev.ID {
		return fmt.Errorf("npc.Service.Return: no snapshot for %q on event %q", actorID, ev.ID)
	}

	a, ok := s.actors.Get(actorID)
	if !ok {
		// The NPC was deleted mid-event; orphan every captured item.
		for _, e := range snap.Items {
			s.items.Delete(e.Item.ID)
		}
		delete(s.snapshots, actorID)
		return nil
	}

	if resurrect && a.Dead {
		a.Dead = false
		a.Conscious = true
		if inst, ok := s.npcs.Get(actorID); ok {
			inst.Revive()
		}
	}

	for _, e := range snap.Items {
		if err := s.items.Restore(actorID, e); err != nil {
			s.logger.Warn("captured item could not be restored; deleting",
				zap.String("npc", actorID),
				zap.String("item", e.Item.ID),
				zap.Error(err),
			)
			s.items.Delete(e.Item.ID)
		}
	}

	if err := s.actors.Move(actorID, snap.OriginCellID); err != nil {
		s.logger.Warn("npc could not be moved home",
			zap.String("npc", actorID),
			zap.String("cell", snap.OriginCellID),
			zap.Error(err),
		)
	}

	delete(s.snapshots, actorID)
	return nil
}

// ReturnAll restores every NPC the event drafted.
func (s *Service) ReturnAll(ev *arena.Event, resurrect bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for actorID, snap := range s.snapshots {
		if snap.EventID != ev.ID {
			continue
		}
		if err := s.returnLocked(actorID, ev, resurrect); err != nil {
			s.logger.Warn("npc return failed",
				zap.String("event", ev.ID),
				zap.String("npc", actorID),
				zap.Error(err),
			)
		}
	}
}

// Snapshot returns the preparation snapshot for an NPC, if any.
//
// Postcondition: Returns (snap, true) if a snapshot exists, or (nil, false).
func (s *Service) Snapshot(actorID string) (*PrepSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[actorID]
	return snap, ok
}

// boutContext assembles the fixed positional argument tuple for hooks.
func (s *Service) boutContext(ev *arena.Event, t *arena.EventType, sideIndex int) scripting.BoutContext {
	names := make([]string, 0, len(ev.Participants))
	for _, p := range ev.Participants {
		names = append(names, p.StageName)
	}

	cellID := ""
	arenaName := ev.ArenaID
	if ca, ok := s.world.GetArena(ev.ArenaID); ok {
		cellID = ca.FightFloorID
		arenaName = ca.Name
	}

	var limitSeconds int64
	if t.TimeLimit > 0 {
		limitSeconds = int64(t.TimeLimit.Seconds())
	}

	return scripting.BoutContext{
		ParticipantNames: names,
		SideIndex:        sideIndex,
		CellID:           cellID,
		EventName:        ev.Name,
		TypeName:         t.Name,
		ArenaName:        arenaName,
		EventID:          ev.ID,
		ScheduledUnix:    ev.ScheduledAt.Unix(),
		TimeLimitSeconds: limitSeconds,
	}
}
