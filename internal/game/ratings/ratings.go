// Package ratings maintains Elo-style combatant ratings, updated once per
// completed arena event.
package ratings

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/actor"
	"github.com/cory-johannsen/arena/internal/game/arena"
)

const (
	// DefaultRating is assigned to any combatant without a recorded rating.
	DefaultRating = 1200.0
	// KFactor scales how far one result moves a rating.
	KFactor = 32.0
)

// Service holds per-actor ratings. All methods are safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	actors  *actor.Manager
	logger  *zap.Logger
	ratings map[string]float64
	applied map[string]bool // event ids already recorded
}

// NewService creates an empty ratings service.
//
// Precondition: actors and logger must be non-nil.
func NewService(actors *actor.Manager, logger *zap.Logger) *Service {
	return &Service{
		actors:  actors,
		logger:  logger,
		ratings: make(map[string]float64),
		applied: make(map[string]bool),
	}
}

// Rating returns the actor's current rating, defaulting when unrecorded.
func (s *Service) Rating(actorID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratingLocked(actorID)
}

func (s *Service) ratingLocked(actorID string) float64 {
	if r, ok := s.ratings[actorID]; ok {
		return r
	}
	return DefaultRating
}

// ApplyDefaultElo records the event's result: every cross-side pairing of
// participants is scored 1/0 for a standing-versus-fallen pair and 0.5 each
// when both or neither still stand. Applying the same event twice is a
// no-op.
//
// Postcondition: every participant has a recorded rating.
func (s *Service) ApplyDefaultElo(ev *arena.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied[ev.ID] {
		return
	}
	s.applied[ev.ID] = true

	standing := make(map[string]bool, len(ev.Participants))
	for _, p := range ev.Participants {
		a, ok := s.actors.Get(p.ActorID)
		standing[p.ActorID] = ok && !a.Dead
	}

	// Ratings are read once up front so pairing order does not matter.
	before := make(map[string]float64, len(ev.Participants))
	for _, p := range ev.Participants {
		before[p.ActorID] = s.ratingLocked(p.ActorID)
	}
	delta := make(map[string]float64, len(ev.Participants))

	for i, p := range ev.Participants {
		for j := i + 1; j < len(ev.Participants); j++ {
			q := ev.Participants[j]
			if p.SideIndex == q.SideIndex {
				continue
			}
			score := 0.5
			switch {
			case standing[p.ActorID] && !standing[q.ActorID]:
				score = 1.0
			case !standing[p.ActorID] && standing[q.ActorID]:
				score = 0.0
			}
			expected := expectedScore(before[p.ActorID], before[q.ActorID])
			delta[p.ActorID] += KFactor * (score - expected)
			delta[q.ActorID] += KFactor * ((1 - score) - (1 - expected))
		}
	}

	for _, p := range ev.Participants {
		s.ratings[p.ActorID] = before[p.ActorID] + delta[p.ActorID]
	}

	s.logger.Info("ratings recorded",
		zap.String("event", ev.ID),
		zap.Int("participants", len(ev.Participants)),
	)
}

// expectedScore is the standard Elo expectation of a against b.
func expectedScore(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}
