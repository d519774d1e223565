package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/game/betting"
)

// BetRepository persists wager records: bets, pari-mutuel pools, and
// payouts. It satisfies the betting service's Store collaborator.
//
// The active-bet invariant (one non-cancelled bet per bettor per event) is
// also enforced by a partial unique index, so a logic regression cannot
// corrupt the persisted record.
type BetRepository struct {
	db *pgxpool.Pool
}

// NewBetRepository creates a BetRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBetRepository(db *pgxpool.Pool) *BetRepository {
	return &BetRepository{db: db}
}

// SaveBet upserts a bet record.
//
// Precondition: b must have a non-empty ID.
func (r *BetRepository) SaveBet(ctx context.Context, b *betting.Bet) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO arena_bets
			(id, event_id, bettor_id, side_index, stake, placed_at, cancelled,
			 cancelled_at, locked_odds, pool_stake_at_placement)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			cancelled = EXCLUDED.cancelled,
			cancelled_at = EXCLUDED.cancelled_at`,
		b.ID, b.EventID, b.BettorID, b.SideIndex, b.Stake, b.PlacedAt,
		b.Cancelled, nullable(b.CancelledAt), b.LockedOdds, b.PoolStakeAtPlacement,
	)
	if err != nil {
		return fmt.Errorf("upserting bet: %w", err)
	}
	return nil
}

// SavePool upserts a pari-mutuel pool record.
func (r *BetRepository) SavePool(ctx context.Context, p *betting.Pool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO arena_bet_pools (event_id, side_index, total, take_rate)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (event_id, side_index) DO UPDATE SET
			total = EXCLUDED.total,
			take_rate = EXCLUDED.take_rate`,
		p.EventID, p.SideIndex, p.Total, p.TakeRate,
	)
	if err != nil {
		return fmt.Errorf("upserting bet pool: %w", err)
	}
	return nil
}

// SavePayout upserts a payout record.
//
// Precondition: p must have a non-empty ID.
func (r *BetRepository) SavePayout(ctx context.Context, p *betting.Payout) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO arena_bet_payouts
			(id, event_id, winner_id, amount, blocked, created_at, collected_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			blocked = EXCLUDED.blocked,
			collected_at = EXCLUDED.collected_at`,
		p.ID, p.EventID, p.WinnerID, p.Amount, p.Blocked,
		p.CreatedAt, nullable(p.CollectedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting payout: %w", err)
	}
	return nil
}

// PayoutsForEvent returns every payout recorded for an event, ordered by
// creation time. Blocked payouts are included for operator review.
func (r *BetRepository) PayoutsForEvent(ctx context.Context, eventID string) ([]*betting.Payout, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, event_id, winner_id, amount, blocked, created_at, collected_at
		FROM arena_bet_payouts WHERE event_id = $1 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing payouts: %w", err)
	}
	defer rows.Close()

	payouts := make([]*betting.Payout, 0)
	for rows.Next() {
		var p betting.Payout
		var collected *time.Time
		if err := rows.Scan(&p.ID, &p.EventID, &p.WinnerID, &p.Amount, &p.Blocked, &p.CreatedAt, &collected); err != nil {
			return nil, fmt.Errorf("scanning payout row: %w", err)
		}
		p.CollectedAt = deref(collected)
		payouts = append(payouts, &p)
	}
	return payouts, rows.Err()
}
