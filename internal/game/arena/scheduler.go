package arena

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
)

// Timer tags used with the TimerRegistry.
const (
	// tagLifecycle keys the single pending step timer of an event.
	tagLifecycle = "lifecycle"
	// tagRecurring keys the repeating spawn timer of an event type.
	tagRecurring = "recurring"
)

// Scheduler computes when the next lifecycle transition of an event should
// fire and arms one-shot timers for it. It never pre-computes more than one
// step ahead: re-arming happens after each applied step, so configuration
// changes between stages are always respected. Preserve this invariant when
// changing the scheduler; do not optimize it into a precomputed schedule.
type Scheduler struct {
	timers   *TimerRegistry
	registry *Registry
	rules    *Rules
	cfg      config.ArenaConfig
	logger   *zap.Logger
	now      func() time.Time

	// Injected after construction. The Lifecycle service drives transitions;
	// the Scheduler only decides when they fire.
	Transition func(ev *Event, target EventState)
	// Spawn instantiates and registers a new event for a recurring type.
	Spawn func(t *EventType, at time.Time) (*Event, error)
	// ArenaReady reports whether the type's arena can host a new event.
	// Nil means always ready.
	ArenaReady func(arenaID string) bool
}

// NewScheduler creates a Scheduler.
//
// Precondition: timers, registry, rules, and logger must be non-nil.
// Postcondition: Returns a Scheduler; Transition and Spawn must be injected
// before the first Schedule or SyncRecurringSchedule call.
func NewScheduler(timers *TimerRegistry, registry *Registry, rules *Rules, cfg config.ArenaConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		timers:   timers,
		registry: registry,
		rules:    rules,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the scheduler's time source. Intended for tests.
//
// Precondition: now must be non-nil.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// NextStep computes the event's next transition and its trigger time.
// Trigger times earlier than now are clamped to now.
//
// Postcondition: Returns (next, at, true) when the event has a scheduled
// next step, or ok == false for terminal states and for a live event with
// no time limit (which is ended externally by combat resolution).
func (s *Scheduler) NextStep(ev *Event) (next EventState, at time.Time, ok bool) {
	t, found := s.registry.TypeOf(ev)
	if !found {
		return 0, time.Time{}, false
	}
	next, found = s.rules.Next(ev.State)
	if !found {
		return 0, time.Time{}, false
	}
	now := s.now()

	switch ev.State {
	case StateDraft:
		at = now
	case StateScheduled:
		if s.registry.ArenaBusy(ev.ArenaID, ev.ID) {
			at = now.Add(s.cfg.BusyRetryDelay)
		} else {
			at = now
		}
	case StateRegistrationOpen:
		if ev.AllSidesFull(t) {
			at = now
		} else {
			at = ev.RegistrationOpensAt.Add(t.RegistrationDuration)
		}
	case StatePreparing:
		at = ev.RegistrationOpensAt.Add(t.RegistrationDuration).Add(t.PreparationDuration)
	case StateStaged:
		at = ev.ScheduledAt
	case StateLive:
		if t.TimeLimit <= 0 {
			return 0, time.Time{}, false
		}
		at = ev.StartedAt.Add(t.TimeLimit)
	case StateResolving, StateCleanup:
		at = now
	default:
		return 0, time.Time{}, false
	}

	if at.Before(now) {
		at = now
	}
	return next, at, true
}

// Schedule cancels any pending step timer for the event, computes the next
// (state, trigger time) pair, and either applies the transition immediately
// (when due) or arms a one-shot timer. When the timer fires the step is
// recomputed, so a still-busy arena results in another retry rather than a
// premature transition.
//
// Precondition: Transition must have been injected.
func (s *Scheduler) Schedule(ev *Event) {
	s.timers.Cancel(ev.ID, tagLifecycle)

	next, at, ok := s.NextStep(ev)
	if !ok {
		return
	}

	now := s.now()
	if !at.After(now) {
		s.Transition(ev, next)
		return
	}

	s.logger.Debug("arming lifecycle timer",
		zap.String("event", ev.ID),
		zap.String("from", ev.State.String()),
		zap.String("to", next.String()),
		zap.Time("at", at),
	)
	s.timers.Arm(ev.ID, tagLifecycle, at.Sub(now), func() {
		s.Schedule(ev)
	})
}

// Cancel removes every pending timer keyed to the event.
func (s *Scheduler) Cancel(ev *Event) {
	s.timers.CancelAllFor(ev.ID)
}

// SyncRecurringSchedule re-arms the single repeating timer for an event
// type. When auto-scheduling is disabled or no recurrence is configured, any
// pending recurring timer is cancelled. On each fire a new event is
// instantiated for the type (skipped when the arena is not ready or an event
// already exists near the same target time) and the timer is immediately
// re-armed for the following cycle.
func (s *Scheduler) SyncRecurringSchedule(t *EventType) {
	s.timers.Cancel(t.ID, tagRecurring)

	if !t.AutoScheduleEnabled || t.Recurrence == nil || t.Recurrence.Interval <= 0 {
		return
	}

	now := s.now()
	target := nextOccurrence(t.Recurrence, now)
	s.logger.Debug("arming recurring timer",
		zap.String("type", t.ID),
		zap.Time("target", target),
	)
	s.timers.Arm(t.ID, tagRecurring, target.Sub(now), func() {
		s.fireRecurring(t, target)
	})
}

// fireRecurring attempts to instantiate one event for the type, then re-arms
// for the following cycle.
func (s *Scheduler) fireRecurring(t *EventType, target time.Time) {
	defer s.SyncRecurringSchedule(t)

	if s.ArenaReady != nil && !s.ArenaReady(t.ArenaID) {
		s.logger.Info("skipping recurring spawn: arena not ready",
			zap.String("type", t.ID),
			zap.String("arena", t.ArenaID),
		)
		return
	}
	// The recurring timer fires at registration time; the intended live time
	// follows the registration and preparation windows.
	liveAt := target.Add(t.RegistrationDuration).Add(t.PreparationDuration)
	if s.registry.HasEventNear(t.ID, liveAt, s.cfg.RecurringDedupWindow) {
		s.logger.Info("skipping recurring spawn: event already exists near target",
			zap.String("type", t.ID),
			zap.Time("target", liveAt),
		)
		return
	}

	ev, err := s.Spawn(t, liveAt)
	if err != nil {
		s.logger.Warn("recurring spawn failed",
			zap.String("type", t.ID),
			zap.Error(err),
		)
		return
	}
	s.Schedule(ev)
}

// RecoverAfterReboot re-syncs every registered event type's recurring schedule.
func (s *Scheduler) RecoverAfterReboot() {
	for _, t := range s.registry.AllTypes() {
		s.SyncRecurringSchedule(t)
	}
}

// nextOccurrence returns the first reference + k*interval strictly after now.
//
// Precondition: rec.Interval > 0.
func nextOccurrence(rec *Recurrence, now time.Time) time.Time {
	if !rec.ReferenceTime.Before(now) {
		return rec.ReferenceTime
	}
	elapsed := now.Sub(rec.ReferenceTime)
	cycles := elapsed/rec.Interval + 1
	return rec.ReferenceTime.Add(cycles * rec.Interval)
}
