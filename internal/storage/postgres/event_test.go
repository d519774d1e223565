package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
	"github.com/cory-johannsen/arena/internal/testutil"
)

func makeTestEvent(state arena.EventState, scheduledAt time.Time) *arena.Event {
	return &arena.Event{
		ID:          uuid.NewString(),
		ArenaID:     "pit",
		TypeID:      "pit-duel",
		Name:        "Pit Duel",
		State:       state,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
		ScheduledAt: scheduledAt.UTC().Truncate(time.Microsecond),
	}
}

func TestEventRepository_SaveAndGet(t *testing.T) {
	repo := postgres.NewEventRepository(testutil.NewPool(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	ev := makeTestEvent(arena.StateLive, now.Add(time.Hour))
	ev.RegistrationOpensAt = now
	ev.StartedAt = now.Add(time.Hour)
	ev.Participants = []arena.Participant{
		{ActorID: "dave", SideIndex: 1, Class: "brute", StageName: "Dave the Blue"},
		{ActorID: "alice", SideIndex: 0, Class: "gladiator", StageName: "Alice the Red"},
	}
	require.NoError(t, repo.Save(ctx, ev))

	got, err := repo.GetByID(ctx, ev.ID)
	require.NoError(t, err)

	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "pit", got.ArenaID)
	assert.Equal(t, "pit-duel", got.TypeID)
	assert.Equal(t, arena.StateLive, got.State)
	assert.True(t, got.RegistrationOpensAt.Equal(now))
	assert.True(t, got.StartedAt.Equal(now.Add(time.Hour)))
	assert.True(t, got.ResolvedAt.IsZero(), "unset timestamps come back zero")
	assert.True(t, got.CompletedAt.IsZero())
	assert.Empty(t, got.AbortReason)

	require.Len(t, got.Participants, 2)
	assert.Equal(t, "alice", got.Participants[0].ActorID, "ordered by side then actor")
	assert.Equal(t, "Alice the Red", got.Participants[0].StageName)
	assert.Equal(t, "dave", got.Participants[1].ActorID)
}

func TestEventRepository_SaveIsUpsert(t *testing.T) {
	repo := postgres.NewEventRepository(testutil.NewPool(t))
	ctx := context.Background()

	ev := makeTestEvent(arena.StateRegistrationOpen, time.Now().Add(time.Hour))
	ev.Participants = []arena.Participant{{ActorID: "alice", SideIndex: 0}}
	require.NoError(t, repo.Save(ctx, ev))

	ev.State = arena.StateAborted
	ev.AbortReason = "Event cancelled."
	ev.CompletedAt = time.Now().UTC().Truncate(time.Microsecond)
	ev.Participants = append(ev.Participants, arena.Participant{ActorID: "dave", SideIndex: 1})
	require.NoError(t, repo.Save(ctx, ev))

	got, err := repo.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, arena.StateAborted, got.State)
	assert.Equal(t, "Event cancelled.", got.AbortReason)
	assert.Len(t, got.Participants, 2, "participant list is replaced, not duplicated")
}

func TestEventRepository_GetByIDNotFound(t *testing.T) {
	repo := postgres.NewEventRepository(testutil.NewPool(t))

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, postgres.ErrEventNotFound)
}

func TestEventRepository_ListUnfinished(t *testing.T) {
	repo := postgres.NewEventRepository(testutil.NewPool(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	later := makeTestEvent(arena.StateScheduled, now.Add(2*time.Hour))
	sooner := makeTestEvent(arena.StateLive, now.Add(time.Hour))
	sooner.Participants = []arena.Participant{{ActorID: "alice", SideIndex: 0}}
	done := makeTestEvent(arena.StateCompleted, now.Add(30*time.Minute))
	aborted := makeTestEvent(arena.StateAborted, now.Add(15*time.Minute))

	for _, ev := range []*arena.Event{later, sooner, done, aborted} {
		require.NoError(t, repo.Save(ctx, ev))
	}

	unfinished, err := repo.ListUnfinished(ctx)
	require.NoError(t, err)
	require.Len(t, unfinished, 2, "terminal events are excluded")
	assert.Equal(t, sooner.ID, unfinished[0].ID, "ordered by scheduled time")
	assert.Equal(t, later.ID, unfinished[1].ID)
	assert.Len(t, unfinished[0].Participants, 1)
}

func TestEventRepository_ListUnfinishedEmpty(t *testing.T) {
	repo := postgres.NewEventRepository(testutil.NewPool(t))

	unfinished, err := repo.ListUnfinished(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, unfinished)
	assert.Empty(t, unfinished)
}
