// Package arena provides the arena event domain model, lifecycle state
// machine, and timer-driven scheduler.
package arena

// EventState is one stage in an arena event's lifecycle.
//
// Invariant: states advance monotonically in declaration order, except for the
// absorbing transition to StateAborted, which is reachable from any
// non-terminal state.
type EventState int

const (
	// StateDraft is a freshly created, not-yet-scheduled event.
	StateDraft EventState = iota
	// StateScheduled is an event waiting for its arena to become free.
	StateScheduled
	// StateRegistrationOpen accepts combatant sign-ups and bets.
	StateRegistrationOpen
	// StatePreparing autofills NPC slots and stages combatant loadouts.
	StatePreparing
	// StateStaged has all combatants on the fight floor awaiting the start.
	StateStaged
	// StateLive is the bout in progress.
	StateLive
	// StateResolving determines the outcome and settles bets.
	StateResolving
	// StateCleanup returns NPCs and tears down observation links.
	StateCleanup
	// StateCompleted is the successful terminal state.
	StateCompleted
	// StateAborted is the absorbing terminal state for cancelled events.
	StateAborted
)

var stateNames = map[EventState]string{
	StateDraft:            "Draft",
	StateScheduled:        "Scheduled",
	StateRegistrationOpen: "RegistrationOpen",
	StatePreparing:        "Preparing",
	StateStaged:           "Staged",
	StateLive:             "Live",
	StateResolving:        "Resolving",
	StateCleanup:          "Cleanup",
	StateCompleted:        "Completed",
	StateAborted:          "Aborted",
}

// String returns the state's display name.
func (s EventState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsTerminal reports whether no further transitions are permitted.
func (s EventState) IsTerminal() bool {
	return s == StateCompleted || s == StateAborted
}

// IsWorking reports whether the state is mid-flight: past registration setup
// but not yet terminal. Events found in a working state at process start
// cannot be recovered and must be aborted.
func (s EventState) IsWorking() bool {
	return s >= StatePreparing && s <= StateCleanup
}

// ParseState returns the EventState for a display name.
//
// Postcondition: Returns (state, true) for a known name, or (0, false).
func ParseState(name string) (EventState, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// Rules is the immutable transition-rule registry: it maps each non-terminal
// state to its single successor. It is constructed explicitly and passed into
// the Scheduler and Lifecycle rather than living in package-level mutable
// state, so there are no hidden initialization order dependencies.
type Rules struct {
	next map[EventState]EventState
}

// DefaultRules returns the standard forward transition chain.
//
// Postcondition: every non-terminal state except StateAborted has a successor.
func DefaultRules() *Rules {
	return &Rules{
		next: map[EventState]EventState{
			StateDraft:            StateScheduled,
			StateScheduled:        StateRegistrationOpen,
			StateRegistrationOpen: StatePreparing,
			StatePreparing:        StateStaged,
			StateStaged:           StateLive,
			StateLive:             StateResolving,
			StateResolving:        StateCleanup,
			StateCleanup:          StateCompleted,
		},
	}
}

// Next returns the successor of s.
//
// Postcondition: Returns (next, true) for non-terminal states, or (0, false)
// for terminal states.
func (r *Rules) Next(s EventState) (EventState, bool) {
	n, ok := r.next[s]
	return n, ok
}
