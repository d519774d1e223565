package observe

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/actor"
	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/world"
)

const (
	// noticeStageStep is the DC increase for one difficulty stage.
	noticeStageStep = 2
	// remoteStages is how many stages harder a checked message becomes
	// when perceived from an observation room instead of the floor.
	remoteStages = 2
	// remoteAudibleDC is the stiffened baseline for audible lines that
	// required no check on the floor.
	remoteAudibleDC = 15
)

// registration binds the watchers of one arena floor cell to the event they
// are watching.
type registration struct {
	eventID  string
	arenaID  string
	watchers map[string]string // watcherID → bound observation cell
}

// Service maintains watcher registrations and delivers floor output, both
// locally and mirrored into observation rooms. It implements the lifecycle's
// Broadcaster and Watchers collaborators.
type Service struct {
	mu            sync.Mutex
	actors        *actor.Manager
	world         *world.Manager
	rng           dice.Source
	logger        *zap.Logger
	registrations map[string]*registration // floorCellID → registration
}

// NewService creates the observation service.
//
// Precondition: actors, worldMgr, rng, and logger must be non-nil.
func NewService(actors *actor.Manager, worldMgr *world.Manager, rng dice.Source, logger *zap.Logger) *Service {
	return &Service{
		actors:        actors,
		world:         worldMgr,
		rng:           rng,
		logger:        logger,
		registrations: make(map[string]*registration),
	}
}

// CanObserve reports whether the observer may watch the event right now. A
// nil return means yes; otherwise the error text is suitable for direct
// display.
func (s *Service) CanObserve(observerID string, ev *arena.Event) error {
	a, ok := s.actors.Get(observerID)
	if !ok {
		return fmt.Errorf("observer %q not found", observerID)
	}
	if !a.Conscious {
		return fmt.Errorf("you are in no condition to watch anything")
	}
	if ev.State.IsTerminal() {
		return fmt.Errorf("%q is already over", ev.Name)
	}
	if ev.State < arena.StateStaged {
		return fmt.Errorf("%q has not taken the floor yet", ev.Name)
	}
	if ev.IsParticipant(observerID) {
		return fmt.Errorf("combatants cannot spectate their own bout")
	}
	ca, ok := s.world.GetArena(ev.ArenaID)
	if !ok {
		return fmt.Errorf("arena %q not found", ev.ArenaID)
	}
	if !ca.HasObservationRooms() {
		return fmt.Errorf("this arena has no observation rooms")
	}
	if !ca.IsObservationCell(a.CellID) {
		return fmt.Errorf("you must be in one of the observation rooms")
	}
	return nil
}

// StartObserving registers the observer as a watcher of the event's floor
// cell, bound to the observation cell they currently occupy.
//
// Postcondition: Returns nil and the observer receives mirrored floor
// output, or an error naming the violated precondition.
func (s *Service) StartObserving(observerID string, ev *arena.Event) error {
	if err := s.CanObserve(observerID, ev); err != nil {
		return err
	}
	a, _ := s.actors.Get(observerID)
	ca, _ := s.world.GetArena(ev.ArenaID)

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[ca.FightFloorID]
	if !ok {
		reg = &registration{
			eventID:  ev.ID,
			arenaID:  ev.ArenaID,
			watchers: make(map[string]string),
		}
		s.registrations[ca.FightFloorID] = reg
	}
	reg.watchers[observerID] = a.CellID
	return nil
}

// StopObserving removes the observer's registration. The registration is
// torn down when its watcher set empties.
func (s *Service) StopObserving(observerID string, ev *arena.Event) {
	ca, ok := s.world.GetArena(ev.ArenaID)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[ca.FightFloorID]
	if !ok {
		return
	}
	delete(reg.watchers, observerID)
	if len(reg.watchers) == 0 {
		delete(s.registrations, ca.FightFloorID)
	}
}

// TeardownFor drops every registration watching the given event.
func (s *Service) TeardownFor(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for floorCellID, reg := range s.registrations {
		if reg.eventID == eventID {
			delete(s.registrations, floorCellID)
		}
	}
}

// Broadcast delivers a plain audible line originating in cellID. It
// satisfies the lifecycle's Broadcaster collaborator.
func (s *Service) Broadcast(cellID, text string) {
	s.Emit(cellID, OutputEvent{Text: text, Audible: true})
}

// Emit delivers an output event to everyone in the originating cell, then
// mirrors it to every valid watcher of that cell. Mirroring applies
// perception gating: lines that already required a notice check are
// hardened by two difficulty stages; audible lines that required none gain
// a check at a stiffened baseline. Watchers who are gone, unconscious, or
// no longer inside the arena's observation rooms are pruned as a side
// effect.
func (s *Service) Emit(cellID string, ev OutputEvent) {
	for _, a := range s.actors.ActorsInCell(cellID) {
		s.deliver(a, ev.Text, ev.RequiresNotice, ev.NoticeDC)
	}

	s.mu.Lock()
	reg, ok := s.registrations[cellID]
	if !ok {
		s.mu.Unlock()
		return
	}

	requiresNotice := ev.RequiresNotice
	dc := ev.NoticeDC
	switch {
	case ev.RequiresNotice:
		dc += remoteStages * noticeStageStep
	case ev.Audible:
		requiresNotice = true
		dc = remoteAudibleDC
	}

	ca, haveArena := s.world.GetArena(reg.arenaID)
	var targets []*actor.Actor
	for watcherID := range reg.watchers {
		w, ok := s.actors.Get(watcherID)
		if !ok || !w.Conscious || (w.Sink != nil && w.Sink.IsClosed()) {
			delete(reg.watchers, watcherID)
			continue
		}
		if !haveArena || !ca.IsObservationCell(w.CellID) {
			delete(reg.watchers, watcherID)
			continue
		}
		targets = append(targets, w)
	}
	if len(reg.watchers) == 0 {
		delete(s.registrations, cellID)
	}
	s.mu.Unlock()

	for _, w := range targets {
		s.deliver(w, ev.Text, requiresNotice, dc)
	}
}

// WatcherCount returns how many watchers are registered on a floor cell.
func (s *Service) WatcherCount(floorCellID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[floorCellID]
	if !ok {
		return 0
	}
	return len(reg.watchers)
}

// deliver pushes a line to one actor, rolling the notice check first when
// required. Actors without a sink (most NPCs) receive nothing.
func (s *Service) deliver(a *actor.Actor, text string, requiresNotice bool, dc int) {
	if a.Sink == nil {
		return
	}
	if requiresNotice {
		r := dice.Check(s.rng, a.Perception, dc)
		if !r.Success() {
			return
		}
	}
	if err := a.Sink.Push(text); err != nil {
		s.logger.Debug("output line dropped",
			zap.String("actor", a.ID),
			zap.Error(err),
		)
	}
}
