package betting

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a Store backed by process memory. Used for tests and for
// running without a database.
type MemoryStore struct {
	mu      sync.Mutex
	bets    map[string]Bet
	pools   map[string]Pool
	payouts map[string]Payout
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bets:    map[string]Bet{},
		pools:   map[string]Pool{},
		payouts: map[string]Payout{},
	}
}

// SaveBet stores a copy of the bet keyed by its ID, replacing any earlier
// version.
//
// Postcondition: later mutations of b are not visible in the store until
// the next SaveBet.
func (m *MemoryStore) SaveBet(_ context.Context, b *Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bets[b.ID] = *b
	return nil
}

// SavePool stores a copy of the pool keyed by event and side, replacing
// any earlier version.
func (m *MemoryStore) SavePool(_ context.Context, p *Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[poolKey(p.EventID, p.SideIndex)] = *p
	return nil
}

// SavePayout stores a copy of the payout keyed by its ID, replacing any
// earlier version.
func (m *MemoryStore) SavePayout(_ context.Context, p *Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payouts[p.ID] = *p
	return nil
}

func poolKey(eventID string, sideIndex int) string {
	return fmt.Sprintf("%s#%d", eventID, sideIndex)
}
