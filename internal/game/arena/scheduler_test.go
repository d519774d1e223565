package arena_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/arena"
)

func testArenaConfig() config.ArenaConfig {
	return config.ArenaConfig{
		HouseEdge:            0.05,
		PoolTakeRate:         0.10,
		BusyRetryDelay:       time.Minute,
		RecurringDedupWindow: time.Second,
	}
}

// transitionRecorder captures Transition calls without mutating the event,
// so Schedule never recurses in tests.
type transitionRecorder struct {
	mu    sync.Mutex
	calls []arena.EventState
	done  chan struct{}
}

func newTransitionRecorder() *transitionRecorder {
	return &transitionRecorder{done: make(chan struct{}, 8)}
}

func (r *transitionRecorder) record(_ *arena.Event, target arena.EventState) {
	r.mu.Lock()
	r.calls = append(r.calls, target)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *transitionRecorder) targets() []arena.EventState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]arena.EventState, len(r.calls))
	copy(out, r.calls)
	return out
}

func newTestScheduler(t *testing.T, types ...*arena.EventType) (*arena.Scheduler, *arena.Registry, *arena.TimerRegistry, time.Time) {
	t.Helper()
	if len(types) == 0 {
		types = []*arena.EventType{duelType()}
	}
	reg, err := arena.NewRegistry(types)
	require.NoError(t, err)

	timers := arena.NewTimerRegistry(zap.NewNop())
	t.Cleanup(timers.Stop)

	s := arena.NewScheduler(timers, reg, arena.DefaultRules(), testArenaConfig(), zap.NewNop())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })
	return s, reg, timers, now
}

func TestNextStepDraft(t *testing.T) {
	s, reg, _, now := newTestScheduler(t)
	ev := arena.NewEvent(duelType(), now.Add(time.Hour))
	require.NoError(t, reg.AddEvent(ev))

	next, at, ok := s.NextStep(ev)
	require.True(t, ok)
	assert.Equal(t, arena.StateScheduled, next)
	assert.Equal(t, now, at)
}

func TestNextStepScheduledFreeArena(t *testing.T) {
	s, reg, _, now := newTestScheduler(t)
	ev := arena.NewEvent(duelType(), now.Add(time.Hour))
	ev.State = arena.StateScheduled
	require.NoError(t, reg.AddEvent(ev))

	next, at, ok := s.NextStep(ev)
	require.True(t, ok)
	assert.Equal(t, arena.StateRegistrationOpen, next)
	assert.Equal(t, now, at)
}

func TestNextStepScheduledBusyArenaRetries(t *testing.T) {
	s, reg, _, now := newTestScheduler(t)
	et := duelType()

	occupant := arena.NewEvent(et, now.Add(time.Hour))
	occupant.State = arena.StateLive
	require.NoError(t, reg.AddEvent(occupant))

	ev := arena.NewEvent(et, now.Add(2*time.Hour))
	ev.State = arena.StateScheduled
	require.NoError(t, reg.AddEvent(ev))

	next, at, ok := s.NextStep(ev)
	require.True(t, ok)
	assert.Equal(t, arena.StateRegistrationOpen, next)
	assert.Equal(t, now.Add(time.Minute), at, "busy arena pushes the step by the retry delay")
}

func TestNextStepRegistrationWindow(t *testing.T) {
	s, reg, _, now := newTestScheduler(t)
	et := duelType()
	ev := arena.NewEvent(et, now.Add(time.Hour))
	ev.State = arena.StateRegistrationOpen
	ev.RegistrationOpensAt = now.Add(-2 * time.Minute)
	require.NoError(t, reg.AddEvent(ev))

	next, at, ok := s.NextStep(ev)
	require.True(t, ok)
	assert.Equal(t, arena.StatePreparing, next)
	assert.Equal(t, ev.RegistrationOpensAt.Add(et.RegistrationDuration), at)
}

func TestNextStepRegistrationFullCardAdvancesNow(t *testing.T) {
	s, reg, _, now := newTestScheduler(t)
	et := duelType()
	ev := arena.NewEvent(et, now.Add(time.Hour))
	ev.State = arena.StateRegistrationOpen
	ev.RegistrationOpensAt = now
	require.NoError(t, reg.AddEvent(ev))
	require.NoError(t, ev.AddParticipant(et, arena.Participant{ActorID: "a", SideIndex: 0}))
	require.NoError(t, ev.AddParticipant(et, arena.Participant{ActorID: "b", SideIndex: 1}))

	_, at, ok := s.NextStep(ev)
	require.True(t, ok)
	assert.Equal(t, now, at)
}

func TestNextStepPastTriggersClampToNow(t *testing.T) {
	s, reg, _, now := newTestScheduler(t)
	et := duelType()
	ev := arena.NewEvent(et, now.Add(-3*time.Hour))
	ev.State = arena.StateStaged
	require.NoError(t, reg.AddEvent(ev))

	next, at, ok := s.NextStep(ev)
	require.True(t, ok)
	assert.Equal(t, arena.StateLive, next)
	assert.Equal(t, now, at, "past scheduled time clamps to now")
}

func TestNextStepLive(t *testing.T) {
	s, reg, _, now := newTestScheduler(t)
	et := duelType()
	ev := arena.NewEvent(et, now)
	ev.State = arena.StateLive
	ev.StartedAt = now.Add(-time.Minute)
	require.NoError(t, reg.AddEvent(ev))

	next, at, ok := s.NextStep(ev)
	require.True(t, ok)
	assert.Equal(t, arena.StateResolving, next)
	assert.Equal(t, ev.StartedAt.Add(et.TimeLimit), at)
}

func TestNextStepLiveWithoutTimeLimit(t *testing.T) {
	et := duelType()
	et.TimeLimit = 0
	s, reg, _, now := newTestScheduler(t, et)

	ev := arena.NewEvent(et, now)
	ev.State = arena.StateLive
	ev.StartedAt = now
	require.NoError(t, reg.AddEvent(ev))

	_, _, ok := s.NextStep(ev)
	assert.False(t, ok, "untimed bouts end only by combat resolution")
}

func TestNextStepTerminalStates(t *testing.T) {
	s, reg, _, now := newTestScheduler(t)
	for _, state := range []arena.EventState{arena.StateCompleted, arena.StateAborted} {
		ev := arena.NewEvent(duelType(), now)
		ev.State = state
		require.NoError(t, reg.AddEvent(ev))
		_, _, ok := s.NextStep(ev)
		assert.False(t, ok, "state %s has no next step", state)
	}
}

func TestNextStepUnknownType(t *testing.T) {
	s, _, _, now := newTestScheduler(t)
	ev := arena.NewEvent(duelType(), now)
	ev.TypeID = "no-such-type"

	_, _, ok := s.NextStep(ev)
	assert.False(t, ok)
}

func TestScheduleTransitionsImmediatelyWhenDue(t *testing.T) {
	s, reg, timers, now := newTestScheduler(t)
	rec := newTransitionRecorder()
	s.Transition = rec.record

	ev := arena.NewEvent(duelType(), now.Add(time.Hour))
	ev.State = arena.StateResolving
	require.NoError(t, reg.AddEvent(ev))

	s.Schedule(ev)

	assert.Equal(t, []arena.EventState{arena.StateCleanup}, rec.targets())
	assert.Empty(t, timers.PendingFor(ev.ID))
}

func TestScheduleArmsTimerForFutureStep(t *testing.T) {
	s, reg, timers, now := newTestScheduler(t)
	rec := newTransitionRecorder()
	s.Transition = rec.record

	ev := arena.NewEvent(duelType(), now.Add(time.Hour))
	ev.State = arena.StateStaged
	require.NoError(t, reg.AddEvent(ev))

	s.Schedule(ev)

	assert.Empty(t, rec.targets())
	assert.Equal(t, []string{"lifecycle"}, timers.PendingFor(ev.ID))

	s.Cancel(ev)
	assert.Empty(t, timers.PendingFor(ev.ID))
}

func recurringType(ref time.Time) *arena.EventType {
	et := duelType()
	et.ID = "nightly-duel"
	et.AutoScheduleEnabled = true
	et.Recurrence = &arena.Recurrence{ReferenceTime: ref, Interval: time.Hour}
	return et
}

func TestSyncRecurringScheduleSpawns(t *testing.T) {
	s, reg, _, _ := newTestScheduler(t, recurringType(time.Time{}))
	et, _ := reg.GetType("nightly-duel")

	// A real clock and a short interval make the first occurrence due within
	// one interval of now.
	s.SetClock(time.Now)
	et.Recurrence.ReferenceTime = time.Now().Add(-time.Hour)
	et.Recurrence.Interval = 25 * time.Millisecond

	rec := newTransitionRecorder()
	s.Transition = rec.record

	spawned := make(chan *arena.Event, 4)
	s.Spawn = func(t *arena.EventType, liveAt time.Time) (*arena.Event, error) {
		ev := arena.NewEvent(t, liveAt)
		if err := reg.AddEvent(ev); err != nil {
			return nil, err
		}
		spawned <- ev
		return ev, nil
	}

	s.SyncRecurringSchedule(et)

	var ev *arena.Event
	select {
	case ev = <-spawned:
	case <-time.After(2 * time.Second):
		t.Fatal("recurring timer did not spawn an event")
	}

	wantLive := time.Now().Add(et.RegistrationDuration).Add(et.PreparationDuration)
	assert.WithinDuration(t, wantLive, ev.ScheduledAt, 2*time.Second)

	// The spawned draft is due immediately, so the scheduler drives it.
	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("spawned event was not scheduled")
	}
	assert.Equal(t, arena.StateScheduled, rec.targets()[0])
}

func waitForRecurringRearm(t *testing.T, timers *arena.TimerRegistry, typeID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, tag := range timers.PendingFor(typeID) {
			if tag == "recurring" {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("recurring timer was not re-armed")
}

func TestSyncRecurringScheduleDedups(t *testing.T) {
	s, reg, timers, _ := newTestScheduler(t, recurringType(time.Time{}))
	et, _ := reg.GetType("nightly-duel")

	s.SetClock(time.Now)
	et.Recurrence.ReferenceTime = time.Now().Add(-time.Hour)
	et.Recurrence.Interval = 25 * time.Millisecond

	// Any occurrence in the next while lands within the dedup window of this
	// pre-existing event.
	existing := arena.NewEvent(et, time.Now().Add(et.RegistrationDuration).Add(et.PreparationDuration))
	require.NoError(t, reg.AddEvent(existing))

	s.Spawn = func(*arena.EventType, time.Time) (*arena.Event, error) {
		t.Error("spawn called despite an existing event near the target")
		return nil, nil
	}
	s.Transition = func(*arena.Event, arena.EventState) {}

	s.SyncRecurringSchedule(et)
	waitForRecurringRearm(t, timers, et.ID)
}

func TestSyncRecurringScheduleArenaNotReady(t *testing.T) {
	s, reg, timers, _ := newTestScheduler(t, recurringType(time.Time{}))
	et, _ := reg.GetType("nightly-duel")

	s.SetClock(time.Now)
	et.Recurrence.ReferenceTime = time.Now().Add(-time.Hour)
	et.Recurrence.Interval = 25 * time.Millisecond

	s.ArenaReady = func(arenaID string) bool { return false }
	s.Spawn = func(*arena.EventType, time.Time) (*arena.Event, error) {
		t.Error("spawn called while arena not ready")
		return nil, nil
	}
	s.Transition = func(*arena.Event, arena.EventState) {}

	s.SyncRecurringSchedule(et)
	waitForRecurringRearm(t, timers, et.ID)
}

func TestSyncRecurringScheduleDisabledCancels(t *testing.T) {
	s, reg, timers, _ := newTestScheduler(t, recurringType(time.Now().Add(time.Hour)))
	et, _ := reg.GetType("nightly-duel")

	s.SyncRecurringSchedule(et)
	assert.Equal(t, []string{"recurring"}, timers.PendingFor(et.ID))

	et.AutoScheduleEnabled = false
	s.SyncRecurringSchedule(et)
	assert.Empty(t, timers.PendingFor(et.ID))
}
