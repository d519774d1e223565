package arena_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/arena"
)

const duelYAML = `
event_type:
  id: pit-duel
  name: Pit Duel
  arena: pit
  registration_duration: 10m
  preparation_duration: 5m
  time_limit: 15m
  betting_model: fixed_odds
  entry_fee: 25
  ticket_fee: 5
  sides:
    - index: 0
      name: Red
      capacity: 1
    - index: 1
      name: Blue
      capacity: 1
      eligibility: gladiator
      auto_fill: true
      loader_hook: load_pit_fodder
      outfit_hook: outfit_blue
`

const nightlyYAML = `
event_type:
  id: nightly-melee
  name: Nightly Melee
  arena: pit
  registration_duration: 30m
  preparation_duration: 10m
  betting_model: pari_mutuel
  bring_your_own: true
  auto_schedule: true
  recurrence:
    reference_time: "2026-01-01T20:00:00Z"
    interval: 24h
  sides:
    - index: 0
      name: East
      capacity: 3
    - index: 1
      name: West
      capacity: 3
`

func TestLoadEventTypeFromBytes(t *testing.T) {
	et, err := arena.LoadEventTypeFromBytes([]byte(duelYAML))
	require.NoError(t, err)

	assert.Equal(t, "pit-duel", et.ID)
	assert.Equal(t, "pit", et.ArenaID)
	assert.Equal(t, 10*time.Minute, et.RegistrationDuration)
	assert.Equal(t, 5*time.Minute, et.PreparationDuration)
	assert.Equal(t, 15*time.Minute, et.TimeLimit)
	assert.Equal(t, arena.FixedOdds, et.BettingModel)
	assert.Equal(t, int64(25), et.Fees.Entry)
	assert.Equal(t, int64(5), et.Fees.Ticket)
	assert.False(t, et.AutoScheduleEnabled)
	assert.Nil(t, et.Recurrence)

	require.Len(t, et.Sides, 2)
	assert.Equal(t, "Red", et.Sides[0].Name)
	assert.Equal(t, "gladiator", et.Sides[1].Eligibility)
	assert.True(t, et.Sides[1].AutoFill)
	assert.Equal(t, "load_pit_fodder", et.Sides[1].LoaderHook)
	assert.Equal(t, "outfit_blue", et.Sides[1].OutfitHook)
}

func TestLoadEventTypeRecurrence(t *testing.T) {
	et, err := arena.LoadEventTypeFromBytes([]byte(nightlyYAML))
	require.NoError(t, err)

	assert.True(t, et.AutoScheduleEnabled)
	assert.True(t, et.BringYourOwn)
	assert.Zero(t, et.TimeLimit, "time limit is optional")
	require.NotNil(t, et.Recurrence)
	assert.Equal(t, time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC), et.Recurrence.ReferenceTime)
	assert.Equal(t, 24*time.Hour, et.Recurrence.Interval)
}

func TestLoadEventTypeBadDuration(t *testing.T) {
	bad := `
event_type:
  id: broken
  name: Broken
  arena: pit
  registration_duration: soon
  preparation_duration: 5m
  betting_model: fixed_odds
  sides:
    - index: 0
      name: A
      capacity: 1
    - index: 1
      name: B
      capacity: 1
`
	_, err := arena.LoadEventTypeFromBytes([]byte(bad))
	assert.Error(t, err)
}

func TestLoadEventTypeInvalidFailsValidation(t *testing.T) {
	bad := `
event_type:
  id: lonely
  name: Lonely
  arena: pit
  registration_duration: 10m
  preparation_duration: 5m
  betting_model: fixed_odds
  sides:
    - index: 0
      name: Solo
      capacity: 1
`
	_, err := arena.LoadEventTypeFromBytes([]byte(bad))
	assert.Error(t, err, "a single side fails validation")
}

func TestLoadEventTypesFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "duel.yaml"), []byte(duelYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nightly.yaml"), []byte(nightlyYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	types, err := arena.LoadEventTypesFromDir(dir)
	require.NoError(t, err)
	assert.Len(t, types, 2)
}

func TestLoadEventTypesFromEmptyDir(t *testing.T) {
	_, err := arena.LoadEventTypesFromDir(t.TempDir())
	assert.Error(t, err)
}
