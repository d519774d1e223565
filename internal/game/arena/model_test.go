package arena_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/arena"
)

func duelType() *arena.EventType {
	return &arena.EventType{
		ID:      "pit-duel",
		Name:    "Pit Duel",
		ArenaID: "pit",
		Sides: []arena.Side{
			{Index: 0, Name: "Red", Capacity: 1},
			{Index: 1, Name: "Blue", Capacity: 1},
		},
		RegistrationDuration: 10 * time.Minute,
		PreparationDuration:  5 * time.Minute,
		TimeLimit:            15 * time.Minute,
		BettingModel:         arena.FixedOdds,
	}
}

func meleeType() *arena.EventType {
	t := duelType()
	t.ID = "pit-melee"
	t.Name = "Pit Melee"
	t.Sides[0].Capacity = 3
	t.Sides[1].Capacity = 3
	t.BettingModel = arena.PariMutuel
	return t
}

func TestEventTypeValidate(t *testing.T) {
	assert.NoError(t, duelType().Validate())

	et := duelType()
	et.ID = ""
	assert.Error(t, et.Validate())

	et = duelType()
	et.Sides = et.Sides[:1]
	assert.Error(t, et.Validate(), "fewer than two sides")

	et = duelType()
	et.Sides[1].Index = 5
	assert.Error(t, et.Validate(), "side index mismatch")

	et = duelType()
	et.Sides[0].Capacity = 0
	assert.Error(t, et.Validate())

	et = duelType()
	et.RegistrationDuration = 0
	assert.Error(t, et.Validate())

	et = duelType()
	et.TimeLimit = -time.Minute
	assert.Error(t, et.Validate())

	et = duelType()
	et.BettingModel = "spread"
	assert.Error(t, et.Validate())

	et = duelType()
	et.AutoScheduleEnabled = true
	assert.Error(t, et.Validate(), "auto-schedule without recurrence")

	et.Recurrence = &arena.Recurrence{ReferenceTime: time.Now(), Interval: time.Hour}
	assert.NoError(t, et.Validate())
}

func TestEventTypeZeroTimeLimitIsValid(t *testing.T) {
	et := duelType()
	et.TimeLimit = 0
	assert.NoError(t, et.Validate())
}

func TestSideByIndex(t *testing.T) {
	et := duelType()
	side, ok := et.SideByIndex(1)
	require.True(t, ok)
	assert.Equal(t, "Blue", side.Name)

	_, ok = et.SideByIndex(-1)
	assert.False(t, ok)
	_, ok = et.SideByIndex(2)
	assert.False(t, ok)
}

func TestNewEvent(t *testing.T) {
	et := duelType()
	liveAt := time.Now().Add(time.Hour)
	ev := arena.NewEvent(et, liveAt)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, arena.StateDraft, ev.State)
	assert.Equal(t, et.ID, ev.TypeID)
	assert.Equal(t, et.ArenaID, ev.ArenaID)
	assert.Equal(t, liveAt, ev.ScheduledAt)
	assert.False(t, ev.CreatedAt.IsZero())
}

func TestAddParticipant(t *testing.T) {
	et := duelType()
	ev := arena.NewEvent(et, time.Now().Add(time.Hour))

	require.NoError(t, ev.AddParticipant(et, arena.Participant{ActorID: "alice", SideIndex: 0}))
	assert.Equal(t, 1, ev.SideCount(0))
	assert.True(t, ev.IsParticipant("alice"))

	err := ev.AddParticipant(et, arena.Participant{ActorID: "bob", SideIndex: 0})
	assert.Error(t, err, "side 0 is at capacity")

	err = ev.AddParticipant(et, arena.Participant{ActorID: "alice", SideIndex: 1})
	assert.Error(t, err, "duplicate actor")

	err = ev.AddParticipant(et, arena.Participant{ActorID: "carol", SideIndex: 7})
	assert.Error(t, err, "undefined side")

	require.NoError(t, ev.AddParticipant(et, arena.Participant{ActorID: "dave", SideIndex: 1}))
	assert.True(t, ev.AllSidesFull(et))
}

func TestAddParticipantFrozenOnceLive(t *testing.T) {
	et := meleeType()
	ev := arena.NewEvent(et, time.Now().Add(time.Hour))
	ev.State = arena.StateLive

	err := ev.AddParticipant(et, arena.Participant{ActorID: "late", SideIndex: 0})
	assert.Error(t, err)
	assert.Empty(t, ev.Participants)
}

func TestParticipantsOnSide(t *testing.T) {
	et := meleeType()
	ev := arena.NewEvent(et, time.Now().Add(time.Hour))
	require.NoError(t, ev.AddParticipant(et, arena.Participant{ActorID: "a", SideIndex: 0}))
	require.NoError(t, ev.AddParticipant(et, arena.Participant{ActorID: "b", SideIndex: 0}))
	require.NoError(t, ev.AddParticipant(et, arena.Participant{ActorID: "c", SideIndex: 1}))

	assert.Len(t, ev.ParticipantsOnSide(0), 2)
	assert.Len(t, ev.ParticipantsOnSide(1), 1)
	assert.Empty(t, ev.ParticipantsOnSide(2))
	assert.False(t, ev.AllSidesFull(et))
}
