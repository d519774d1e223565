package arena

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/actor"
	"github.com/cory-johannsen/arena/internal/game/finance"
	"github.com/cory-johannsen/arena/internal/game/world"
)

// RestartAbortReason is the standard reason stamped on events that were
// mid-flight when the process went down.
const RestartAbortReason = "Event cancelled due to server restart."

// Outcome classifies how a bout ended for settlement purposes.
type Outcome int

const (
	// OutcomeWin means one or more sides won outright.
	OutcomeWin Outcome = iota
	// OutcomeDraw means no side won; only side-less bets pay out.
	OutcomeDraw
)

// Bets is the wager settlement surface the Lifecycle drives.
type Bets interface {
	// Settle pays every winning active bet, or blocks the whole batch on
	// insolvency.
	Settle(ev *Event, outcome Outcome, winningSides []int) error
	// RefundAll cancels every active bet and refunds stakes. Returns the
	// number of bets refunded.
	RefundAll(ev *Event, reason string) int
}

// Npcs drafts, prepares, and returns NPC combatants.
type Npcs interface {
	// AutoFill returns up to slotsNeeded NPC participants for the side.
	AutoFill(ev *Event, sideIndex, slotsNeeded int) ([]Participant, error)
	// Prepare snapshots and stages one NPC into the side's waiting cell.
	Prepare(actorID string, ev *Event, sideIndex int, class string) error
	// OutfitSide runs the side's outfit hook, if configured.
	OutfitSide(ev *Event, sideIndex int)
	// ReturnAll restores and releases every NPC drafted into the event.
	ReturnAll(ev *Event, resurrect bool)
}

// Watchers tears down spectator registrations when an event terminates.
type Watchers interface {
	TeardownFor(eventID string)
}

// Ratings records match results once on completion.
type Ratings interface {
	ApplyDefaultElo(ev *Event)
}

// Broadcaster delivers a line of output to every occupant of a cell.
type Broadcaster interface {
	Broadcast(cellID, text string)
}

// EventStore persists event state so reboot recovery can classify events.
type EventStore interface {
	// Save upserts the event's state, timestamps, and participants.
	Save(ctx context.Context, ev *Event) error
	// ListUnfinished returns every persisted event not yet terminal.
	ListUnfinished(ctx context.Context) ([]*Event, error)
}

// Lifecycle is the authoritative state-machine driver for arena events. It
// applies one forward transition at a time, invoking the entering state's
// stage hook, then asks the Scheduler to arm the next single step.
type Lifecycle struct {
	registry  *Registry
	rules     *Rules
	scheduler *Scheduler
	store     EventStore
	world     *world.Manager
	actors    *actor.Manager
	bets      Bets
	npcs      Npcs
	watchers  Watchers
	ratings   Ratings
	announce  Broadcaster
	ledger    *finance.Service
	logger    *zap.Logger
	now       func() time.Time
}

// NewLifecycle creates the lifecycle driver and injects itself into the
// scheduler's Transition and Spawn hooks.
//
// Precondition: all collaborators must be non-nil except announce, which may
// be nil when no observation plumbing is attached.
func NewLifecycle(
	registry *Registry,
	rules *Rules,
	scheduler *Scheduler,
	store EventStore,
	worldMgr *world.Manager,
	actors *actor.Manager,
	bets Bets,
	npcs Npcs,
	watchers Watchers,
	ratings Ratings,
	announce Broadcaster,
	ledger *finance.Service,
	logger *zap.Logger,
) *Lifecycle {
	l := &Lifecycle{
		registry:  registry,
		rules:     rules,
		scheduler: scheduler,
		store:     store,
		world:     worldMgr,
		actors:    actors,
		bets:      bets,
		npcs:      npcs,
		watchers:  watchers,
		ratings:   ratings,
		announce:  announce,
		ledger:    ledger,
		logger:    logger,
		now:       time.Now,
	}
	scheduler.Transition = l.Transition
	scheduler.Spawn = l.SpawnEvent
	return l
}

// SetClock overrides the lifecycle's time source. Intended for tests.
//
// Precondition: now must be non-nil.
func (l *Lifecycle) SetClock(now func() time.Time) {
	l.now = now
}

// SpawnEvent instantiates, persists, and registers a new event of the given
// type with the intended live time.
//
// Postcondition: Returns the registered event in StateDraft, or an error.
func (l *Lifecycle) SpawnEvent(t *EventType, liveAt time.Time) (*Event, error) {
	ev := NewEvent(t, liveAt)
	if err := l.store.Save(context.Background(), ev); err != nil {
		return nil, fmt.Errorf("arena.Lifecycle.SpawnEvent: %w", err)
	}
	if err := l.registry.AddEvent(ev); err != nil {
		return nil, fmt.Errorf("arena.Lifecycle.SpawnEvent: %w", err)
	}
	l.logger.Info("event spawned",
		zap.String("event", ev.ID),
		zap.String("type", t.ID),
		zap.Time("live_at", liveAt),
	)
	return ev, nil
}

// Transition advances the event one step at a time from its current state
// toward target, invoking the stage hook for each entered state.
//
// Rules: the request is a no-op unless it is forward (target > current) or
// the target is StateAborted; terminal states refuse further transitions.
// StateAborted short-circuits with no intermediate hooks. After the final
// applied step the Scheduler is asked to arm the next single step, except on
// completion, which records ratings and cancels timers instead.
func (l *Lifecycle) Transition(ev *Event, target EventState) {
	if ev.State.IsTerminal() {
		return
	}
	if target == StateAborted {
		l.Abort(ev, "Event cancelled.")
		return
	}
	if target <= ev.State {
		return
	}

	for ev.State < target {
		next, ok := l.rules.Next(ev.State)
		if !ok {
			break
		}
		if err := l.applyStep(ev, next); err != nil {
			// The event is observed in its prior state; the scheduler will
			// re-attempt on its next pass.
			l.logger.Error("transition step failed",
				zap.String("event", ev.ID),
				zap.String("to", next.String()),
				zap.Error(err),
			)
			return
		}
	}

	if !ev.State.IsTerminal() {
		l.scheduler.Schedule(ev)
	}
}

// applyStep enters next: stamp the timestamp, persist, then run the stage
// hook's side effects. Persistence failure reverts the in-memory state so
// the operation fails as a unit; hook side-effect failures are logged but do
// not unwind the step.
func (l *Lifecycle) applyStep(ev *Event, next EventState) error {
	prev := ev.State
	now := l.now()

	ev.State = next
	switch next {
	case StateRegistrationOpen:
		if ev.RegistrationOpensAt.IsZero() {
			ev.RegistrationOpensAt = now
		}
	case StateLive:
		if ev.StartedAt.IsZero() {
			ev.StartedAt = now
		}
	case StateResolving:
		if ev.ResolvedAt.IsZero() {
			ev.ResolvedAt = now
		}
	case StateCompleted:
		if ev.CompletedAt.IsZero() {
			ev.CompletedAt = now
		}
	}

	if err := l.store.Save(context.Background(), ev); err != nil {
		ev.State = prev
		return fmt.Errorf("persisting state %s: %w", next, err)
	}

	l.logger.Info("event transition",
		zap.String("event", ev.ID),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)

	switch next {
	case StateRegistrationOpen:
		l.enterRegistrationOpen(ev)
	case StatePreparing:
		l.enterPreparing(ev)
	case StateStaged:
		l.enterStaged(ev)
	case StateLive:
		l.enterLive(ev)
	case StateResolving:
		l.enterResolving(ev)
	case StateCleanup:
		l.enterCleanup(ev)
	case StateCompleted:
		l.enterCompleted(ev)
	}
	return nil
}

// Abort is the absorbing transition: it applies immediately from any
// non-terminal state, refunds all bets, releases NPCs, tears down watcher
// registrations, and cancels every pending timer. Aborting an already
// terminal event is a no-op.
func (l *Lifecycle) Abort(ev *Event, reason string) {
	if ev.State.IsTerminal() {
		return
	}

	prev := ev.State
	ev.State = StateAborted
	ev.AbortReason = reason
	if err := l.store.Save(context.Background(), ev); err != nil {
		l.logger.Error("persisting abort failed",
			zap.String("event", ev.ID),
			zap.Error(err),
		)
	}

	refunded := l.bets.RefundAll(ev, reason)
	l.npcs.ReturnAll(ev, true)
	l.watchers.TeardownFor(ev.ID)
	l.scheduler.Cancel(ev)

	l.broadcastToFloor(ev, fmt.Sprintf("%s has been cancelled: %s", ev.Name, reason))
	l.logger.Info("event aborted",
		zap.String("event", ev.ID),
		zap.String("from", prev.String()),
		zap.String("reason", reason),
		zap.Int("bets_refunded", refunded),
	)
}

// RegisterCombatant signs an actor up on a side while registration is open,
// collecting the entry fee into the arena account.
//
// Postcondition: Returns nil and adds the participant, or an error naming
// the violated precondition.
func (l *Lifecycle) RegisterCombatant(ev *Event, actorID string, sideIndex int, class, stageName string) error {
	if ev.State != StateRegistrationOpen {
		return fmt.Errorf("registration for %q is not open", ev.Name)
	}
	t, ok := l.registry.TypeOf(ev)
	if !ok {
		return fmt.Errorf("event %q has unknown type %q", ev.ID, ev.TypeID)
	}
	side, ok := t.SideByIndex(sideIndex)
	if !ok {
		return fmt.Errorf("side %d is not defined on %q", sideIndex, t.ID)
	}
	if side.Eligibility != "" && side.Eligibility != class {
		return fmt.Errorf("side %q only admits %q combatants", side.Name, side.Eligibility)
	}
	if err := ev.AddParticipant(t, Participant{
		ActorID:   actorID,
		SideIndex: sideIndex,
		Class:     class,
		StageName: stageName,
	}); err != nil {
		return err
	}

	if t.Fees.Entry > 0 {
		a, ok := l.world.GetArena(ev.ArenaID)
		if ok {
			if err := l.ledger.Credit(a.AccountID, t.Fees.Entry, "entry fee "+ev.ID); err != nil {
				l.logger.Warn("entry fee not collected",
					zap.String("event", ev.ID),
					zap.Error(err),
				)
			}
		}
	}

	if err := l.store.Save(context.Background(), ev); err != nil {
		l.logger.Error("persisting registration failed",
			zap.String("event", ev.ID),
			zap.Error(err),
		)
	}

	// A full card pulls the preparation step forward.
	if ev.AllSidesFull(t) {
		l.scheduler.Schedule(ev)
	}
	return nil
}

// RebootRecovery classifies every persisted unfinished event at process
// start: events caught mid-flight (Preparing through Cleanup) are aborted
// with the standard restart reason, waiting events are re-armed, and every
// event type's recurring schedule is re-synced from scratch.
func (l *Lifecycle) RebootRecovery(ctx context.Context) error {
	events, err := l.store.ListUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("arena.Lifecycle.RebootRecovery: %w", err)
	}

	for _, ev := range events {
		if err := l.registry.AddEvent(ev); err != nil {
			l.logger.Warn("skipping unrecoverable persisted event",
				zap.String("event", ev.ID),
				zap.Error(err),
			)
			continue
		}
		if ev.State.IsWorking() {
			l.Abort(ev, RestartAbortReason)
			continue
		}
		l.scheduler.Schedule(ev)
	}

	l.scheduler.RecoverAfterReboot()
	l.logger.Info("reboot recovery complete", zap.Int("events", len(events)))
	return nil
}

// ResolveExternally ends a live bout whose outcome was decided by combat
// resolution, recording the winning sides before the resolving hook settles
// bets. Used for events without a time limit, and for early finishes.
//
// Precondition: ev.State must be StateLive.
func (l *Lifecycle) ResolveExternally(ev *Event) error {
	if ev.State != StateLive {
		return fmt.Errorf("event %q is %s, not live", ev.ID, ev.State)
	}
	l.Transition(ev, StateResolving)
	return nil
}

func (l *Lifecycle) enterRegistrationOpen(ev *Event) {
	l.broadcastToFloor(ev, fmt.Sprintf("Registration is now open for %s!", ev.Name))
}

func (l *Lifecycle) enterPreparing(ev *Event) {
	t, ok := l.registry.TypeOf(ev)
	if !ok {
		return
	}

	for i := range t.Sides {
		side := &t.Sides[i]
		if !side.AutoFill {
			continue
		}
		slots := side.Capacity - ev.SideCount(side.Index)
		if slots <= 0 {
			continue
		}
		drafted, err := l.npcs.AutoFill(ev, side.Index, slots)
		if err != nil {
			l.logger.Warn("npc autofill failed",
				zap.String("event", ev.ID),
				zap.Int("side", side.Index),
				zap.Error(err),
			)
			continue
		}
		for _, p := range drafted {
			if err := ev.AddParticipant(t, p); err != nil {
				l.logger.Warn("drafted npc rejected",
					zap.String("event", ev.ID),
					zap.String("npc", p.ActorID),
					zap.Error(err),
				)
				continue
			}
			if err := l.npcs.Prepare(p.ActorID, ev, side.Index, p.Class); err != nil {
				l.logger.Warn("npc preparation failed",
					zap.String("event", ev.ID),
					zap.String("npc", p.ActorID),
					zap.Error(err),
				)
			}
		}
	}

	for i := range t.Sides {
		if t.Sides[i].OutfitHook != "" {
			l.npcs.OutfitSide(ev, t.Sides[i].Index)
		}
	}

	if err := l.store.Save(context.Background(), ev); err != nil {
		l.logger.Error("persisting drafted participants failed",
			zap.String("event", ev.ID),
			zap.Error(err),
		)
	}
}

func (l *Lifecycle) enterStaged(ev *Event) {
	a, ok := l.world.GetArena(ev.ArenaID)
	if !ok {
		l.logger.Error("staging failed: arena not found",
			zap.String("event", ev.ID),
			zap.String("arena", ev.ArenaID),
		)
		return
	}
	for _, p := range ev.Participants {
		if err := l.actors.Move(p.ActorID, a.FightFloorID); err != nil {
			l.logger.Warn("could not stage combatant",
				zap.String("event", ev.ID),
				zap.String("actor", p.ActorID),
				zap.Error(err),
			)
		}
	}
	l.broadcastToFloor(ev, fmt.Sprintf("The combatants take the floor for %s.", ev.Name))
}

func (l *Lifecycle) enterLive(ev *Event) {
	l.broadcastToFloor(ev, fmt.Sprintf("%s has begun!", ev.Name))
}

func (l *Lifecycle) enterResolving(ev *Event) {
	outcome, winningSides := l.determineOutcome(ev)
	if err := l.bets.Settle(ev, outcome, winningSides); err != nil {
		l.logger.Error("bet settlement failed",
			zap.String("event", ev.ID),
			zap.Error(err),
		)
	}
}

func (l *Lifecycle) enterCleanup(ev *Event) {
	l.npcs.ReturnAll(ev, true)
	l.watchers.TeardownFor(ev.ID)
}

func (l *Lifecycle) enterCompleted(ev *Event) {
	l.ratings.ApplyDefaultElo(ev)
	l.scheduler.Cancel(ev)
	l.broadcastToFloor(ev, fmt.Sprintf("%s has concluded.", ev.Name))
}

// determineOutcome inspects which sides still have a standing combatant.
// Exactly one standing side is an outright win; anything else (time-limit
// expiry with several sides standing, or a wipe) is a draw.
func (l *Lifecycle) determineOutcome(ev *Event) (Outcome, []int) {
	standing := map[int]bool{}
	for _, p := range ev.Participants {
		a, ok := l.actors.Get(p.ActorID)
		if !ok || a.Dead {
			continue
		}
		standing[p.SideIndex] = true
	}
	sides := make([]int, 0, len(standing))
	for idx := range standing {
		sides = append(sides, idx)
	}
	if len(sides) == 1 {
		return OutcomeWin, sides
	}
	return OutcomeDraw, nil
}

func (l *Lifecycle) broadcastToFloor(ev *Event, text string) {
	if l.announce == nil {
		return
	}
	a, ok := l.world.GetArena(ev.ArenaID)
	if !ok {
		return
	}
	l.announce.Broadcast(a.FightFloorID, text)
}
