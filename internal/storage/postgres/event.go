package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/game/arena"
)

// ErrEventNotFound is returned when an event lookup yields no results.
var ErrEventNotFound = errors.New("event not found")

// EventRepository provides arena event persistence operations. It satisfies
// the lifecycle's EventStore collaborator.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates an EventRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Save upserts the event's state, timestamps, and participant list in one
// transaction.
//
// Precondition: ev must have a non-empty ID.
// Postcondition: A later ListUnfinished or GetByID observes exactly this
// state, or an error is returned and nothing is written.
func (r *EventRepository) Save(ctx context.Context, ev *arena.Event) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning event save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO arena_events
			(id, arena_id, type_id, name, state, created_at, registration_opens_at,
			 scheduled_at, started_at, resolved_at, completed_at, abort_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			registration_opens_at = EXCLUDED.registration_opens_at,
			scheduled_at = EXCLUDED.scheduled_at,
			started_at = EXCLUDED.started_at,
			resolved_at = EXCLUDED.resolved_at,
			completed_at = EXCLUDED.completed_at,
			abort_reason = EXCLUDED.abort_reason`,
		ev.ID, ev.ArenaID, ev.TypeID, ev.Name, ev.State.String(),
		ev.CreatedAt, nullable(ev.RegistrationOpensAt), ev.ScheduledAt,
		nullable(ev.StartedAt), nullable(ev.ResolvedAt), nullable(ev.CompletedAt),
		ev.AbortReason,
	)
	if err != nil {
		return fmt.Errorf("upserting event: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM arena_event_participants WHERE event_id = $1`, ev.ID); err != nil {
		return fmt.Errorf("clearing participants: %w", err)
	}
	for _, p := range ev.Participants {
		_, err := tx.Exec(ctx, `
			INSERT INTO arena_event_participants
				(event_id, actor_id, side_index, class, stage_name)
			VALUES ($1,$2,$3,$4,$5)`,
			ev.ID, p.ActorID, p.SideIndex, p.Class, p.StageName,
		)
		if err != nil {
			return fmt.Errorf("inserting participant: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing event save: %w", err)
	}
	return nil
}

// GetByID retrieves an event with its participants.
//
// Postcondition: Returns the event or ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*arena.Event, error) {
	ev, err := r.scanEvent(r.db.QueryRow(ctx, `
		SELECT id, arena_id, type_id, name, state, created_at, registration_opens_at,
		       scheduled_at, started_at, resolved_at, completed_at, abort_reason
		FROM arena_events WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("querying event: %w", err)
	}
	if err := r.loadParticipants(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ListUnfinished returns every persisted event not yet in a terminal state,
// ordered by scheduled time. Used by reboot recovery.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *EventRepository) ListUnfinished(ctx context.Context) ([]*arena.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, arena_id, type_id, name, state, created_at, registration_opens_at,
		       scheduled_at, started_at, resolved_at, completed_at, abort_reason
		FROM arena_events
		WHERE state NOT IN ('Completed', 'Aborted')
		ORDER BY scheduled_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing unfinished events: %w", err)
	}
	defer rows.Close()

	events := make([]*arena.Event, 0)
	for rows.Next() {
		ev, err := r.scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ev := range events {
		if err := r.loadParticipants(ctx, ev); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (r *EventRepository) scanEvent(row pgx.Row) (*arena.Event, error) {
	var (
		ev        arena.Event
		stateName string
		regOpens  *time.Time
		started   *time.Time
		resolved  *time.Time
		completed *time.Time
	)
	if err := row.Scan(
		&ev.ID, &ev.ArenaID, &ev.TypeID, &ev.Name, &stateName, &ev.CreatedAt,
		&regOpens, &ev.ScheduledAt, &started, &resolved, &completed, &ev.AbortReason,
	); err != nil {
		return nil, err
	}

	state, ok := arena.ParseState(stateName)
	if !ok {
		return nil, fmt.Errorf("event %q has unknown persisted state %q", ev.ID, stateName)
	}
	ev.State = state
	ev.RegistrationOpensAt = deref(regOpens)
	ev.StartedAt = deref(started)
	ev.ResolvedAt = deref(resolved)
	ev.CompletedAt = deref(completed)
	return &ev, nil
}

func (r *EventRepository) loadParticipants(ctx context.Context, ev *arena.Event) error {
	rows, err := r.db.Query(ctx, `
		SELECT actor_id, side_index, class, stage_name
		FROM arena_event_participants
		WHERE event_id = $1
		ORDER BY side_index, actor_id`,
		ev.ID,
	)
	if err != nil {
		return fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p arena.Participant
		if err := rows.Scan(&p.ActorID, &p.SideIndex, &p.Class, &p.StageName); err != nil {
			return fmt.Errorf("scanning participant row: %w", err)
		}
		ev.Participants = append(ev.Participants, p)
	}
	return rows.Err()
}

// nullable maps the zero time to NULL for storage.
func nullable(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// deref maps NULL back to the zero time.
func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
