package arena

import (
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/arena/internal/game/world"
)

// RenderEventType formats an event type for the operator surface.
//
// Postcondition: Returns a non-empty multi-line string; carries no state
// transitions.
func RenderEventType(t *EventType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event type %s (%s)\n", t.ID, t.Name)
	fmt.Fprintf(&b, "  Arena:        %s\n", t.ArenaID)
	fmt.Fprintf(&b, "  Betting:      %s\n", t.BettingModel)
	fmt.Fprintf(&b, "  Registration: %s, preparation: %s\n", t.RegistrationDuration, t.PreparationDuration)
	if t.TimeLimit > 0 {
		fmt.Fprintf(&b, "  Time limit:   %s\n", t.TimeLimit)
	} else {
		b.WriteString("  Time limit:   none\n")
	}
	if t.Fees.Entry > 0 || t.Fees.Ticket > 0 {
		fmt.Fprintf(&b, "  Fees:         entry %d, ticket %d\n", t.Fees.Entry, t.Fees.Ticket)
	}
	if t.BringYourOwn {
		b.WriteString("  Combatants keep their own equipment\n")
	}
	if t.AutoScheduleEnabled && t.Recurrence != nil {
		fmt.Fprintf(&b, "  Recurs every %s (reference %s)\n",
			t.Recurrence.Interval, t.Recurrence.ReferenceTime.Format(time.RFC3339))
	}
	for _, s := range t.Sides {
		fmt.Fprintf(&b, "  Side %d %q: capacity %d", s.Index, s.Name, s.Capacity)
		if s.Eligibility != "" {
			fmt.Fprintf(&b, ", %s only", s.Eligibility)
		}
		if s.AutoFill {
			b.WriteString(", auto-fill")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderEvent formats a live event for the operator surface.
//
// Postcondition: Returns a non-empty multi-line string.
func RenderEvent(ev *Event, t *EventType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event %s (%s)\n", ev.ID, ev.Name)
	fmt.Fprintf(&b, "  State:     %s\n", ev.State)
	fmt.Fprintf(&b, "  Arena:     %s\n", ev.ArenaID)
	fmt.Fprintf(&b, "  Scheduled: %s\n", ev.ScheduledAt.Format(time.RFC3339))
	writeStamp(&b, "Reg. open", ev.RegistrationOpensAt)
	writeStamp(&b, "Started", ev.StartedAt)
	writeStamp(&b, "Resolved", ev.ResolvedAt)
	writeStamp(&b, "Completed", ev.CompletedAt)
	if ev.AbortReason != "" {
		fmt.Fprintf(&b, "  Aborted:   %s\n", ev.AbortReason)
	}

	if t != nil {
		for _, s := range t.Sides {
			onSide := ev.ParticipantsOnSide(s.Index)
			fmt.Fprintf(&b, "  Side %d %q (%d/%d):", s.Index, s.Name, len(onSide), s.Capacity)
			if len(onSide) == 0 {
				b.WriteString(" empty")
			}
			for _, p := range onSide {
				fmt.Fprintf(&b, " %s", p.StageName)
			}
			b.WriteString("\n")
		}
	} else {
		fmt.Fprintf(&b, "  Participants: %d\n", len(ev.Participants))
	}
	return b.String()
}

// RenderArena formats a combat arena and its current events for the
// operator surface.
//
// Postcondition: Returns a non-empty multi-line string.
func RenderArena(a *world.CombatArena, events []*Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Arena %s (%s)\n", a.ID, a.Name)
	fmt.Fprintf(&b, "  Fight floor: %s\n", a.FightFloorID)
	fmt.Fprintf(&b, "  Waiting:     %s\n", strings.Join(a.WaitingCellIDs, ", "))
	if len(a.ObservationCellIDs) > 0 {
		fmt.Fprintf(&b, "  Observation: %s\n", strings.Join(a.ObservationCellIDs, ", "))
	} else {
		b.WriteString("  Observation: none\n")
	}
	fmt.Fprintf(&b, "  Currency:    %s, account %s\n", a.Currency, a.AccountID)

	count := 0
	for _, ev := range events {
		if ev.ArenaID != a.ID {
			continue
		}
		fmt.Fprintf(&b, "  Event %s: %s at %s\n", ev.ID, ev.State, ev.ScheduledAt.Format(time.RFC3339))
		count++
	}
	if count == 0 {
		b.WriteString("  No events\n")
	}
	return b.String()
}

func writeStamp(b *strings.Builder, label string, ts time.Time) {
	if ts.IsZero() {
		return
	}
	fmt.Fprintf(b, "  %-9s %s\n", label+":", ts.Format(time.RFC3339))
}
