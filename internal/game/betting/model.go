package betting

import (
	"time"
)

// FieldPoolIndex keys the pari-mutuel pool for side-less (draw/field) bets.
const FieldPoolIndex = -1

// Bet is a single wager against an arena event. Side-less bets carry a nil
// SideIndex and win only on a draw. Exactly one of LockedOdds and
// PoolStakeAtPlacement is meaningful, depending on the event type's betting
// model; both are snapshots captured at placement time for auditability.
type Bet struct {
	ID          string
	EventID     string
	BettorID    string
	SideIndex   *int
	Stake       int64
	PlacedAt    time.Time
	Cancelled   bool
	CancelledAt time.Time

	// LockedOdds is the decimal multiplier fixed at placement (fixed-odds
	// model only).
	LockedOdds float64
	// PoolStakeAtPlacement is the side pool's total before this stake was
	// added (pari-mutuel model only).
	PoolStakeAtPlacement int64
}

// Active reports whether the bet still stands.
func (b *Bet) Active() bool {
	return !b.Cancelled
}

// poolIndex maps a nil side to the field pool key.
func (b *Bet) poolIndex() int {
	if b.SideIndex == nil {
		return FieldPoolIndex
	}
	return *b.SideIndex
}

// Pool accumulates pari-mutuel stakes for one (event, side) pair. Pools are
// created lazily on the first bet for that side and zeroed at settlement.
type Pool struct {
	EventID   string
	SideIndex int
	Total     int64
	TakeRate  float64
}

// Payout records one settlement result. Blocked payouts were withheld
// because the arena account could not cover the full batch; they await
// operator attention and carry no CollectedAt until released.
type Payout struct {
	ID          string
	EventID     string
	WinnerID    string
	Amount      int64
	Blocked     bool
	CreatedAt   time.Time
	CollectedAt time.Time
}
