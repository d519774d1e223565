package betting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/game/finance"
	"github.com/cory-johannsen/arena/internal/game/world"
)

// Store persists wager records. The Service keeps the authoritative working
// set in memory and writes through on every logical operation; a write
// failure fails the operation.
type Store interface {
	SaveBet(ctx context.Context, b *Bet) error
	SavePool(ctx context.Context, p *Pool) error
	SavePayout(ctx context.Context, p *Payout) error
}

// Quote is a read-only pricing projection for one side of an event.
type Quote struct {
	Model arena.BettingModel
	// Odds is the multiplier a fixed-odds stake would lock right now.
	Odds float64
	// SidePool and TotalPool describe pari-mutuel state; SidePool is the
	// requested side's pool and TotalPool the sum across all pools.
	SidePool  int64
	TotalPool int64
	TakeRate  float64
}

// Service handles stake placement, cancellation, and settlement for arena
// events. All state checks are evaluated at call time; there is no
// reservation window between a quote and a placement.
type Service struct {
	mu       sync.Mutex
	registry *arena.Registry
	world    *world.Manager
	ledger   *finance.Service
	store    Store
	cfg      config.ArenaConfig
	logger   *zap.Logger
	now      func() time.Time

	// bets holds every bet per event, cancelled ones included.
	bets map[string][]*Bet
	// pools holds pari-mutuel pools per event, keyed by side index.
	pools   map[string]map[int]*Pool
	payouts []*Payout
}

// NewService creates the betting service.
//
// Precondition: registry, worldMgr, ledger, store, and logger must be
// non-nil.
func NewService(registry *arena.Registry, worldMgr *world.Manager, ledger *finance.Service, store Store, cfg config.ArenaConfig, logger *zap.Logger) *Service {
	return &Service{
		registry: registry,
		world:    worldMgr,
		ledger:   ledger,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		bets:     map[string][]*Bet{},
		pools:    map[string]map[int]*Pool{},
	}
}

// SetClock overrides the service's time source. Intended for tests.
//
// Precondition: now must be non-nil.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CanBet reports whether the bettor may place a stake on the event right
// now. A nil return means yes; otherwise the error text is suitable for
// direct display to the bettor.
func (s *Service) CanBet(bettorID string, ev *arena.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canBetLocked(bettorID, ev)
}

func (s *Service) canBetLocked(bettorID string, ev *arena.Event) error {
	switch ev.State {
	case arena.StateRegistrationOpen, arena.StatePreparing, arena.StateStaged:
	default:
		return fmt.Errorf("betting on %q is closed", ev.Name)
	}
	if ev.IsParticipant(bettorID) {
		return fmt.Errorf("combatants may not bet on their own event")
	}
	if s.activeBetLocked(ev.ID, bettorID) != nil {
		return fmt.Errorf("you already hold a bet on %q", ev.Name)
	}
	return nil
}

// PlaceBet validates and records a stake. A nil sideIndex is a side-less
// (draw/field) bet. The stake is credited to the arena's account as a
// liability buffer the moment the bet is accepted.
//
// Postcondition: Returns the recorded bet, or an error naming the violated
// precondition.
func (s *Service) PlaceBet(bettorID string, ev *arena.Event, sideIndex *int, stake int64) (*Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stake <= 0 {
		return nil, fmt.Errorf("stake must be positive")
	}
	if err := s.canBetLocked(bettorID, ev); err != nil {
		return nil, err
	}
	t, ok := s.registry.TypeOf(ev)
	if !ok {
		return nil, fmt.Errorf("event %q has unknown type %q", ev.ID, ev.TypeID)
	}
	if sideIndex != nil {
		if _, ok := t.SideByIndex(*sideIndex); !ok {
			return nil, fmt.Errorf("side %d is not defined on %q", *sideIndex, t.ID)
		}
	}
	a, ok := s.world.GetArena(ev.ArenaID)
	if !ok {
		return nil, fmt.Errorf("arena %q not found", ev.ArenaID)
	}

	b := &Bet{
		ID:        uuid.NewString(),
		EventID:   ev.ID,
		BettorID:  bettorID,
		SideIndex: sideIndex,
		Stake:     stake,
		PlacedAt:  s.now(),
	}

	switch t.BettingModel {
	case arena.FixedOdds:
		if sideIndex == nil {
			b.LockedOdds = DrawOdds
		} else {
			b.LockedOdds = FixedOddsFor(ev.SideCount(*sideIndex), len(ev.Participants), s.cfg.HouseEdge)
		}
	case arena.PariMutuel:
		pool := s.ensurePoolLocked(ev.ID, b.poolIndex())
		b.PoolStakeAtPlacement = pool.Total
		pool.Total += stake
		if err := s.store.SavePool(context.Background(), pool); err != nil {
			pool.Total -= stake
			return nil, fmt.Errorf("betting.Service.PlaceBet: %w", err)
		}
	default:
		return nil, fmt.Errorf("event type %q has no betting model", t.ID)
	}

	if err := s.ledger.Credit(a.AccountID, stake, "stake "+b.ID); err != nil {
		s.unwindPoolLocked(ev.ID, b, stake)
		return nil, fmt.Errorf("betting.Service.PlaceBet: %w", err)
	}
	if err := s.store.SaveBet(context.Background(), b); err != nil {
		if derr := s.ledger.Debit(a.AccountID, stake, "unwound stake "+b.ID); derr != nil {
			s.logger.Error("stake unwind failed",
				zap.String("bet", b.ID),
				zap.Error(derr),
			)
		}
		s.unwindPoolLocked(ev.ID, b, stake)
		return nil, fmt.Errorf("betting.Service.PlaceBet: %w", err)
	}

	s.bets[ev.ID] = append(s.bets[ev.ID], b)
	s.logger.Info("bet placed",
		zap.String("event", ev.ID),
		zap.String("bettor", bettorID),
		zap.Int64("stake", stake),
		zap.Float64("locked_odds", b.LockedOdds),
	)
	return b, nil
}

// CancelBet withdraws the bettor's active bet and refunds the stake from
// the arena account. Permitted only before the event goes live.
func (s *Service) CancelBet(bettorID string, ev *arena.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.State >= arena.StateLive {
		return fmt.Errorf("bets on %q are locked once the bout begins", ev.Name)
	}
	b := s.activeBetLocked(ev.ID, bettorID)
	if b == nil {
		return fmt.Errorf("you have no active bet on %q", ev.Name)
	}
	return s.cancelLocked(ev, b, "cancelled by bettor")
}

// cancelLocked refunds the bet's stake, marks it cancelled, and removes it
// from its pool. The refund is realized before the bet is flipped so a
// failed refund leaves the bet active rather than eating the stake.
func (s *Service) cancelLocked(ev *arena.Event, b *Bet, memo string) error {
	a, ok := s.world.GetArena(ev.ArenaID)
	if !ok {
		return fmt.Errorf("arena %q not found", ev.ArenaID)
	}

	if err := s.ledger.Debit(a.AccountID, b.Stake, "refund "+b.ID+": "+memo); err != nil {
		return fmt.Errorf("betting.Service cancel: %w", err)
	}

	b.Cancelled = true
	b.CancelledAt = s.now()
	if err := s.store.SaveBet(context.Background(), b); err != nil {
		b.Cancelled = false
		b.CancelledAt = time.Time{}
		if cerr := s.ledger.Credit(a.AccountID, b.Stake, "refund unwound "+b.ID); cerr != nil {
			s.logger.Error("refund unwind failed",
				zap.String("bet", b.ID),
				zap.Error(cerr),
			)
		}
		return fmt.Errorf("betting.Service cancel: %w", err)
	}

	if pool, ok := s.pools[ev.ID][b.poolIndex()]; ok {
		pool.Total -= b.Stake
		if err := s.store.SavePool(context.Background(), pool); err != nil {
			s.logger.Error("pool adjustment not persisted",
				zap.String("event", ev.ID),
				zap.Int("side", pool.SideIndex),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Settle pays every winning active bet on the event. A bet wins on an
// outright win when its side is among winningSides, and on a draw when it
// is side-less. Fixed-odds winners collect stake times locked odds;
// pari-mutuel winners collect their proportional share of the net pool
// across all side pools. The arena must cover the whole batch: on
// insolvency nothing is paid, every payout is recorded blocked, and the
// shortfall is reported for operator attention.
//
// Postcondition: all pools for the event are zeroed on a successful
// settlement; on a blocked settlement pools are left intact for the
// operator.
func (s *Service) Settle(ev *arena.Event, outcome arena.Outcome, winningSides []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	winners := map[int]bool{}
	for _, idx := range winningSides {
		winners[idx] = true
	}

	totalPools := int64(0)
	takeRate := s.cfg.PoolTakeRate
	for _, pool := range s.pools[ev.ID] {
		totalPools += pool.Total
		takeRate = pool.TakeRate
	}
	netPool := float64(totalPools) * (1 - takeRate)

	var batch []*Payout
	var total int64
	for _, b := range s.bets[ev.ID] {
		if !b.Active() {
			continue
		}
		won := false
		if outcome == arena.OutcomeWin {
			won = b.SideIndex != nil && winners[*b.SideIndex]
		} else {
			won = b.SideIndex == nil
		}
		if !won {
			continue
		}

		var amount int64
		if b.LockedOdds > 0 {
			amount = int64(math.Round(float64(b.Stake) * b.LockedOdds))
		} else if pool, ok := s.pools[ev.ID][b.poolIndex()]; ok && pool.Total > 0 {
			amount = int64(math.Round(float64(b.Stake) / float64(pool.Total) * netPool))
		}
		if amount <= 0 {
			continue
		}
		batch = append(batch, &Payout{
			ID:        uuid.NewString(),
			EventID:   ev.ID,
			WinnerID:  b.BettorID,
			Amount:    amount,
			CreatedAt: s.now(),
		})
		total += amount
	}

	a, ok := s.world.GetArena(ev.ArenaID)
	if !ok {
		return fmt.Errorf("betting.Service.Settle: arena %q not found", ev.ArenaID)
	}

	if total > 0 && !s.ledger.EnsureFunds(a.AccountID, total) {
		for _, p := range batch {
			p.Blocked = true
			s.payouts = append(s.payouts, p)
			if err := s.store.SavePayout(context.Background(), p); err != nil {
				s.logger.Error("blocked payout not persisted",
					zap.String("payout", p.ID),
					zap.Error(err),
				)
			}
		}
		s.ledger.ReportBlocked(a.AccountID, ev.ID, total)
		s.logger.Warn("settlement blocked by insolvency",
			zap.String("event", ev.ID),
			zap.Int64("required", total),
			zap.Int("payouts", len(batch)),
		)
		return nil
	}

	for _, p := range batch {
		if err := s.ledger.Debit(a.AccountID, p.Amount, "payout "+p.ID); err != nil {
			return fmt.Errorf("betting.Service.Settle: %w", err)
		}
		p.CollectedAt = s.now()
		s.payouts = append(s.payouts, p)
		if err := s.store.SavePayout(context.Background(), p); err != nil {
			s.logger.Error("payout not persisted",
				zap.String("payout", p.ID),
				zap.Error(err),
			)
		}
	}

	for _, pool := range s.pools[ev.ID] {
		pool.Total = 0
		if err := s.store.SavePool(context.Background(), pool); err != nil {
			s.logger.Error("pool not zeroed in store",
				zap.String("event", ev.ID),
				zap.Int("side", pool.SideIndex),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("event settled",
		zap.String("event", ev.ID),
		zap.Int("payouts", len(batch)),
		zap.Int64("paid", total),
	)
	return nil
}

// RefundAll cancels every active bet on the event and refunds stakes.
// Returns the number of bets refunded.
func (s *Service) RefundAll(ev *arena.Event, reason string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	refunded := 0
	for _, b := range s.bets[ev.ID] {
		if !b.Active() {
			continue
		}
		if err := s.cancelLocked(ev, b, reason); err != nil {
			s.logger.Error("refund failed",
				zap.String("bet", b.ID),
				zap.Error(err),
			)
			continue
		}
		refunded++
	}
	return refunded
}

// GetQuote projects the current price for a side without committing a
// stake. Side-index validation matches placement.
func (s *Service) GetQuote(ev *arena.Event, sideIndex *int) (Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.registry.TypeOf(ev)
	if !ok {
		return Quote{}, fmt.Errorf("event %q has unknown type %q", ev.ID, ev.TypeID)
	}
	if sideIndex != nil {
		if _, ok := t.SideByIndex(*sideIndex); !ok {
			return Quote{}, fmt.Errorf("side %d is not defined on %q", *sideIndex, t.ID)
		}
	}

	q := Quote{Model: t.BettingModel}
	switch t.BettingModel {
	case arena.FixedOdds:
		if sideIndex == nil {
			q.Odds = DrawOdds
		} else {
			q.Odds = FixedOddsFor(ev.SideCount(*sideIndex), len(ev.Participants), s.cfg.HouseEdge)
		}
	case arena.PariMutuel:
		q.TakeRate = s.cfg.PoolTakeRate
		idx := FieldPoolIndex
		if sideIndex != nil {
			idx = *sideIndex
		}
		for _, pool := range s.pools[ev.ID] {
			q.TotalPool += pool.Total
			q.TakeRate = pool.TakeRate
			if pool.SideIndex == idx {
				q.SidePool = pool.Total
			}
		}
	}
	return q, nil
}

// ActiveBets returns the active bets on an event, ordered by placement.
func (s *Service) ActiveBets(eventID string) []*Bet {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Bet
	for _, b := range s.bets[eventID] {
		if b.Active() {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out
}

// Payouts returns a snapshot of every recorded payout.
func (s *Service) Payouts() []*Payout {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Payout, len(s.payouts))
	copy(out, s.payouts)
	return out
}

func (s *Service) activeBetLocked(eventID, bettorID string) *Bet {
	for _, b := range s.bets[eventID] {
		if b.BettorID == bettorID && b.Active() {
			return b
		}
	}
	return nil
}

// unwindPoolLocked backs a failed placement's stake out of its pool. A
// no-op for fixed-odds bets, which have no pool.
func (s *Service) unwindPoolLocked(eventID string, b *Bet, stake int64) {
	pool, ok := s.pools[eventID][b.poolIndex()]
	if !ok {
		return
	}
	pool.Total -= stake
	if err := s.store.SavePool(context.Background(), pool); err != nil {
		s.logger.Error("pool unwind not persisted",
			zap.String("event", eventID),
			zap.Int("side", pool.SideIndex),
			zap.Error(err),
		)
	}
}

func (s *Service) ensurePoolLocked(eventID string, sideIndex int) *Pool {
	byEvent, ok := s.pools[eventID]
	if !ok {
		byEvent = map[int]*Pool{}
		s.pools[eventID] = byEvent
	}
	pool, ok := byEvent[sideIndex]
	if !ok {
		pool = &Pool{
			EventID:   eventID,
			SideIndex: sideIndex,
			TakeRate:  s.cfg.PoolTakeRate,
		}
		byEvent[sideIndex] = pool
	}
	return pool
}
