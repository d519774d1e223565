package arena

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BettingModel selects how wagers on an event are priced.
type BettingModel string

const (
	// FixedOdds locks a payout multiplier into each bet at placement time.
	FixedOdds BettingModel = "fixed_odds"
	// PariMutuel pools stakes per side and splits the net pool among winners.
	PariMutuel BettingModel = "pari_mutuel"
)

// Side is one of the opposing teams in an event type.
type Side struct {
	// Index is the side's position in the event type's side list.
	Index int
	// Name is the display name (e.g. "Red", "Blue").
	Name string
	// Capacity is the maximum number of combatants on this side.
	Capacity int
	// Eligibility is an optional combatant-class restriction tag. Empty = open.
	Eligibility string
	// AutoFill enables NPC autofill for empty slots on this side.
	AutoFill bool
	// LoaderHook is the Lua hook that supplies NPC combatants when AutoFill
	// is set. Empty means autofill yields nothing.
	LoaderHook string
	// OutfitHook is an optional Lua hook run to outfit this side during
	// preparation.
	OutfitHook string
}

// Recurrence configures automatic scheduling of repeating events.
type Recurrence struct {
	// ReferenceTime anchors the repeating schedule.
	ReferenceTime time.Time
	// Interval is the period between occurrences.
	Interval time.Duration
}

// FeeSchedule holds the fees an event type charges.
type FeeSchedule struct {
	// Entry is the per-combatant registration fee.
	Entry int64
	// Ticket is the per-spectator observation fee.
	Ticket int64
}

// EventType is the reusable template a recurring kind of bout is derived
// from. It is immutable while any event derived from it is in flight.
type EventType struct {
	// ID uniquely identifies this event type.
	ID string
	// Name is the display name.
	Name string
	// ArenaID is the combat arena events of this type run in.
	ArenaID string
	// Sides is the ordered list of opposing sides.
	Sides []Side
	// RegistrationDuration is how long registration stays open.
	RegistrationDuration time.Duration
	// PreparationDuration is how long preparation takes after registration.
	PreparationDuration time.Duration
	// TimeLimit caps the live bout. Zero means the bout has no scheduled
	// exit and is ended externally by combat resolution.
	TimeLimit time.Duration
	// BettingModel selects fixed-odds or pari-mutuel wagering.
	BettingModel BettingModel
	// Fees is the fee schedule.
	Fees FeeSchedule
	// BringYourOwn lets combatants keep their own loadout; otherwise NPC
	// loadouts are stripped for the duration of the event.
	BringYourOwn bool
	// AutoScheduleEnabled arms a repeating timer that instantiates events
	// from Recurrence.
	AutoScheduleEnabled bool
	// Recurrence is the repeating schedule. Nil disables recurrence.
	Recurrence *Recurrence
}

// SideByIndex returns the side at the given index.
//
// Postcondition: Returns (side, true) if the index is in range, or (nil, false).
func (t *EventType) SideByIndex(i int) (*Side, bool) {
	if i < 0 || i >= len(t.Sides) {
		return nil, false
	}
	return &t.Sides[i], true
}

// Validate checks event type invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (t *EventType) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("event type ID must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("event type %q: name must not be empty", t.ID)
	}
	if t.ArenaID == "" {
		return fmt.Errorf("event type %q: arena must not be empty", t.ID)
	}
	if len(t.Sides) < 2 {
		return fmt.Errorf("event type %q: must define at least two sides, got %d", t.ID, len(t.Sides))
	}
	for i, side := range t.Sides {
		if side.Index != i {
			return fmt.Errorf("event type %q: side %d has index %d", t.ID, i, side.Index)
		}
		if side.Capacity < 1 {
			return fmt.Errorf("event type %q: side %d capacity must be >= 1, got %d", t.ID, i, side.Capacity)
		}
	}
	if t.RegistrationDuration <= 0 {
		return fmt.Errorf("event type %q: registration duration must be positive", t.ID)
	}
	if t.PreparationDuration <= 0 {
		return fmt.Errorf("event type %q: preparation duration must be positive", t.ID)
	}
	if t.TimeLimit < 0 {
		return fmt.Errorf("event type %q: time limit must not be negative", t.ID)
	}
	switch t.BettingModel {
	case FixedOdds, PariMutuel:
	default:
		return fmt.Errorf("event type %q: unknown betting model %q", t.ID, t.BettingModel)
	}
	if t.AutoScheduleEnabled && (t.Recurrence == nil || t.Recurrence.Interval <= 0) {
		return fmt.Errorf("event type %q: auto-schedule requires a recurrence interval", t.ID)
	}
	return nil
}

// Participant is one combatant registered on an event.
type Participant struct {
	// ActorID references the character or NPC instance.
	ActorID string
	// SideIndex is the side the participant fights on.
	SideIndex int
	// Class is the combatant class the participant enters as.
	Class string
	// StageName is the announcer name used for this bout.
	StageName string
}

// Event is one scheduled instance of a bout derived from an event type.
//
// Invariant: participant side indices reference a side defined on the event
// type, and no side exceeds its capacity. Participants are mutated only
// while State < StateLive.
type Event struct {
	// ID uniquely identifies this event.
	ID string
	// ArenaID is the owning combat arena.
	ArenaID string
	// TypeID is the event type this event was derived from.
	TypeID string
	// Name is the display name for this bout.
	Name string
	// State is the current lifecycle state.
	State EventState
	// CreatedAt is when the event was instantiated.
	CreatedAt time.Time
	// RegistrationOpensAt is stamped when registration opens.
	RegistrationOpensAt time.Time
	// ScheduledAt is the intended live time.
	ScheduledAt time.Time
	// StartedAt is stamped when the bout goes live.
	StartedAt time.Time
	// ResolvedAt is stamped when the outcome is determined.
	ResolvedAt time.Time
	// CompletedAt is stamped on completion.
	CompletedAt time.Time
	// Participants is the list of registered combatants.
	Participants []Participant
	// AbortReason is the human-readable reason the event was aborted.
	// Empty unless State == StateAborted.
	AbortReason string
}

// NewEvent instantiates an event from the given type with the intended live time.
//
// Precondition: t must be valid; scheduledAt must not be zero.
// Postcondition: Returns an Event in StateDraft with a fresh UUID.
func NewEvent(t *EventType, scheduledAt time.Time) *Event {
	return &Event{
		ID:          uuid.NewString(),
		ArenaID:     t.ArenaID,
		TypeID:      t.ID,
		Name:        t.Name,
		State:       StateDraft,
		CreatedAt:   time.Now(),
		ScheduledAt: scheduledAt,
	}
}

// SideCount returns the number of participants on the given side.
func (e *Event) SideCount(sideIndex int) int {
	count := 0
	for _, p := range e.Participants {
		if p.SideIndex == sideIndex {
			count++
		}
	}
	return count
}

// IsParticipant reports whether actorID is registered on this event.
func (e *Event) IsParticipant(actorID string) bool {
	for _, p := range e.Participants {
		if p.ActorID == actorID {
			return true
		}
	}
	return false
}

// AllSidesFull reports whether every side of t is at capacity.
//
// Precondition: t must be the event's type.
func (e *Event) AllSidesFull(t *EventType) bool {
	for _, side := range t.Sides {
		if e.SideCount(side.Index) < side.Capacity {
			return false
		}
	}
	return true
}

// AddParticipant registers a combatant on the event.
//
// Precondition: t must be the event's type.
// Postcondition: Returns an error if the event is already live, the side
// index is out of range, the side is at capacity, or the actor is already
// registered.
func (e *Event) AddParticipant(t *EventType, p Participant) error {
	if e.State >= StateLive {
		return fmt.Errorf("event %q: participants are frozen in state %s", e.ID, e.State)
	}
	side, ok := t.SideByIndex(p.SideIndex)
	if !ok {
		return fmt.Errorf("event %q: side %d is not defined on type %q", e.ID, p.SideIndex, t.ID)
	}
	if e.SideCount(p.SideIndex) >= side.Capacity {
		return fmt.Errorf("event %q: side %d is at capacity (%d)", e.ID, p.SideIndex, side.Capacity)
	}
	if e.IsParticipant(p.ActorID) {
		return fmt.Errorf("event %q: %q is already registered", e.ID, p.ActorID)
	}
	e.Participants = append(e.Participants, p)
	return nil
}

// ParticipantsOnSide returns the participants registered on sideIndex.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (e *Event) ParticipantsOnSide(sideIndex int) []Participant {
	out := []Participant{}
	for _, p := range e.Participants {
		if p.SideIndex == sideIndex {
			out = append(out, p)
		}
	}
	return out
}
