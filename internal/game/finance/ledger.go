// Package finance provides the arena account ledger: solvency checks and
// atomic credit/debit operations backing the betting engine.
package finance

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Account is a house bank account holding a single-currency balance.
type Account struct {
	// ID uniquely identifies the account.
	ID string
	// Balance is the current balance in base currency units.
	Balance int64
	// BackingAccountID is an optional reserve account funds can be pulled
	// from by EnsureFunds. Empty means no backing account.
	BackingAccountID string
}

// Entry is one ledger line recorded for every credit or debit.
type Entry struct {
	AccountID string
	Amount    int64 // positive = credit, negative = debit
	Memo      string
	At        time.Time
}

// Service is the ledger for all arena accounts.
// All methods are safe for concurrent use.
type Service struct {
	mu       sync.Mutex
	accounts map[string]*Account
	entries  []Entry
	logger   *zap.Logger
}

// NewService creates a ledger over the given accounts.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a Service indexing every account by ID.
func NewService(accounts []*Account, logger *zap.Logger) *Service {
	m := make(map[string]*Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}
	return &Service{
		accounts: m,
		logger:   logger,
	}
}

// Balance returns the current balance of the given account.
//
// Postcondition: Returns (balance, true) if the account exists, or (0, false).
func (s *Service) Balance(accountID string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return 0, false
	}
	return a.Balance, true
}

// IsSolvent reports whether the account can cover amount.
//
// Precondition: amount >= 0.
func (s *Service) IsSolvent(accountID string, amount int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	return ok && a.Balance >= amount
}

// Credit adds amount to the account and records a ledger entry.
//
// Precondition: amount >= 0.
// Postcondition: Balance increases by amount, or an error if the account is unknown.
func (s *Service) Credit(accountID string, amount int64, memo string) error {
	if amount < 0 {
		return fmt.Errorf("finance.Service.Credit: amount must not be negative, got %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("finance.Service.Credit: account %q not found", accountID)
	}
	a.Balance += amount
	s.entries = append(s.entries, Entry{AccountID: accountID, Amount: amount, Memo: memo, At: time.Now()})
	return nil
}

// Debit removes amount from the account and records a ledger entry.
// The debit is atomic: it either fully applies or is rejected.
//
// Precondition: amount >= 0.
// Postcondition: Balance decreases by amount, or an error if the account is
// unknown or the balance is insufficient.
func (s *Service) Debit(accountID string, amount int64, memo string) error {
	if amount < 0 {
		return fmt.Errorf("finance.Service.Debit: amount must not be negative, got %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("finance.Service.Debit: account %q not found", accountID)
	}
	if a.Balance < amount {
		return fmt.Errorf("finance.Service.Debit: account %q has %d, need %d", accountID, a.Balance, amount)
	}
	a.Balance -= amount
	s.entries = append(s.entries, Entry{AccountID: accountID, Amount: -amount, Memo: memo, At: time.Now()})
	return nil
}

// EnsureFunds attempts to realize amount on the account, pulling any
// shortfall from the backing account when one is configured.
//
// Precondition: amount >= 0.
// Postcondition: Returns true iff the account balance is >= amount on return.
func (s *Service) EnsureFunds(accountID string, amount int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return false
	}
	if a.Balance >= amount {
		return true
	}
	if a.BackingAccountID == "" {
		return false
	}
	backing, ok := s.accounts[a.BackingAccountID]
	if !ok {
		return false
	}

	shortfall := amount - a.Balance
	if backing.Balance < shortfall {
		return false
	}
	backing.Balance -= shortfall
	a.Balance += shortfall
	now := time.Now()
	s.entries = append(s.entries,
		Entry{AccountID: backing.ID, Amount: -shortfall, Memo: "transfer to " + accountID, At: now},
		Entry{AccountID: accountID, Amount: shortfall, Memo: "transfer from " + backing.ID, At: now},
	)
	return true
}

// ReportBlocked records that a payout batch could not be covered so an
// operator can resolve it. The batch is never partially paid.
func (s *Service) ReportBlocked(accountID, eventID string, amount int64) {
	s.logger.Warn("payout batch blocked by insolvency",
		zap.String("account", accountID),
		zap.String("event", eventID),
		zap.Int64("amount", amount),
	)
}

// Entries returns a snapshot of all recorded ledger entries.
//
// Postcondition: Returns a non-nil copy; mutation does not affect the ledger.
func (s *Service) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
