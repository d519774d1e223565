package betting

import "math"

const (
	// DrawOdds is the fixed multiplier for side-less bets.
	DrawOdds = 3.0

	minProbability = 0.05
	maxProbability = 0.95
	minOdds        = 1.1
	maxOdds        = 10.0
)

// FixedOddsFor computes the decimal odds for backing a side, from the
// current participant populations. The implied probability is the side's
// share of all participants, clamped to [0.05, 0.95] so empty or lopsided
// cards still price; the resulting odds are clamped to [1.1, 10.0] and
// rounded to two decimals.
//
// Precondition: houseEdge must be in [0, 1).
func FixedOddsFor(sideParticipants, totalParticipants int, houseEdge float64) float64 {
	p := maxProbability
	if totalParticipants > 0 {
		p = clamp(float64(sideParticipants)/float64(totalParticipants), minProbability, maxProbability)
	}
	odds := clamp((1-houseEdge)/p, minOdds, maxOdds)
	return math.Round(odds*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
