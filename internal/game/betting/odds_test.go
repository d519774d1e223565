package betting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/betting"
)

func TestFixedOddsEmptyCardFloors(t *testing.T) {
	// No participants implies the maximum probability, which prices below
	// the floor and clamps up.
	assert.Equal(t, 1.1, betting.FixedOddsFor(0, 0, 0.05))
}

func TestFixedOddsEvenCard(t *testing.T) {
	// One of two combatants: p = 0.5, odds = 0.95 / 0.5.
	assert.Equal(t, 1.9, betting.FixedOddsFor(1, 2, 0.05))
}

func TestFixedOddsUnderdog(t *testing.T) {
	// One of ten combatants: p clamps low, odds = 0.95 / 0.1.
	assert.Equal(t, 9.5, betting.FixedOddsFor(1, 10, 0.05))
}

func TestFixedOddsLongshotCeiling(t *testing.T) {
	// One of forty combatants: p clamps to 0.05, raw odds 19 exceed the cap.
	assert.Equal(t, 10.0, betting.FixedOddsFor(1, 40, 0.05))
}

func TestFixedOddsNoHouseEdge(t *testing.T) {
	assert.Equal(t, 2.0, betting.FixedOddsFor(1, 2, 0))
}

func TestPropertyOddsAlwaysBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(0, 100).Draw(t, "total")
		side := rapid.IntRange(0, total).Draw(t, "side")
		edge := rapid.Float64Range(0, 0.5).Draw(t, "edge")

		odds := betting.FixedOddsFor(side, total, edge)
		if odds < 1.1 || odds > 10.0 {
			t.Fatalf("odds %g out of bounds for side=%d total=%d edge=%g", odds, side, total, edge)
		}
	})
}

func TestPropertyMorePopularSideNeverPaysMore(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(2, 100).Draw(t, "total")
		small := rapid.IntRange(0, total-1).Draw(t, "small")
		large := rapid.IntRange(small+1, total).Draw(t, "large")

		if betting.FixedOddsFor(large, total, 0.05) > betting.FixedOddsFor(small, total, 0.05) {
			t.Fatalf("side with %d of %d pays more than side with %d", large, total, small)
		}
	})
}
