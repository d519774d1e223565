// Package dice provides the core randomness abstraction and check-roll types
// for the arena engine.
package dice

import "fmt"

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// CheckResult holds the full audit trail for a single d20 check.
//
// Postcondition: Total() == Roll + Modifier.
type CheckResult struct {
	Roll     int // raw d20 result in [1, 20]
	Modifier int // flat modifier (may be negative)
	DC       int // difficulty class the check was made against
}

// Total returns the die result plus the modifier.
func (r CheckResult) Total() int {
	return r.Roll + r.Modifier
}

// Success reports whether the check met or beat its DC.
func (r CheckResult) Success() bool {
	return r.Total() >= r.DC
}

// String returns a human-readable audit string in the format:
//
//	"d20+3 → 14 +3 = 17 vs DC 15"
func (r CheckResult) String() string {
	return fmt.Sprintf("d20%+d → %d %+d = %d vs DC %d",
		r.Modifier, r.Roll, r.Modifier, r.Total(), r.DC)
}

// Check rolls a d20 against dc with the given modifier.
//
// Precondition: src must be non-nil.
// Postcondition: result.Roll is in [1, 20].
func Check(src Source, modifier, dc int) CheckResult {
	return CheckResult{
		Roll:     src.Intn(20) + 1,
		Modifier: modifier,
		DC:       dc,
	}
}
