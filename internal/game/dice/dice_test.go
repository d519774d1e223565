package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

func TestCheckResult(t *testing.T) {
	r := dice.CheckResult{Roll: 14, Modifier: 3, DC: 15}
	assert.Equal(t, 17, r.Total())
	assert.True(t, r.Success())
	assert.Equal(t, "d20+3 → 14 +3 = 17 vs DC 15", r.String())

	r = dice.CheckResult{Roll: 5, Modifier: -2, DC: 10}
	assert.Equal(t, 3, r.Total())
	assert.False(t, r.Success())
	assert.Equal(t, "d20-2 → 5 -2 = 3 vs DC 10", r.String())
}

func TestCheckUsesSource(t *testing.T) {
	src := &dice.FixedSource{Values: []int{19}}
	r := dice.Check(src, 2, 15)
	assert.Equal(t, 20, r.Roll, "Intn result is shifted into [1, 20]")
	assert.Equal(t, 22, r.Total())
	assert.True(t, r.Success())

	src = &dice.FixedSource{Values: []int{0}}
	r = dice.Check(src, 0, 15)
	assert.Equal(t, 1, r.Roll)
	assert.False(t, r.Success())
}

func TestFixedSourceRepeatsLast(t *testing.T) {
	src := &dice.FixedSource{Values: []int{3, 7}}
	assert.Equal(t, 3, src.Intn(20))
	assert.Equal(t, 7, src.Intn(20))
	assert.Equal(t, 7, src.Intn(20), "last value repeats once exhausted")
}

func TestFixedSourceWraps(t *testing.T) {
	src := &dice.FixedSource{Values: []int{25}}
	assert.Equal(t, 5, src.Intn(20))
}

func TestIntnPanicsOnNonPositive(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
	assert.Panics(t, func() { (&dice.FixedSource{Values: []int{1}}).Intn(-1) })
	assert.Panics(t, func() { (&dice.FixedSource{}).Intn(6) })
}

// Property-based tests

func TestPropertyCryptoSourceInRange(t *testing.T) {
	src := dice.NewCryptoSource()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 1000).Draw(t, "n")
		v := src.Intn(n)
		if v < 0 || v >= n {
			t.Fatalf("Intn(%d) = %d out of range", n, v)
		}
	})
}

func TestPropertyCheckRollInRange(t *testing.T) {
	src := dice.NewCryptoSource()
	rapid.Check(t, func(t *rapid.T) {
		mod := rapid.IntRange(-5, 10).Draw(t, "mod")
		dc := rapid.IntRange(0, 30).Draw(t, "dc")
		r := dice.Check(src, mod, dc)
		if r.Roll < 1 || r.Roll > 20 {
			t.Fatalf("roll %d out of [1,20]", r.Roll)
		}
		if r.Total() != r.Roll+mod {
			t.Fatalf("total %d != roll %d + mod %d", r.Total(), r.Roll, mod)
		}
		if r.Success() != (r.Total() >= dc) {
			t.Fatalf("success mismatch: %v", r)
		}
	})
}
