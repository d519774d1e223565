package finance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/finance"
)

func newLedger(accounts ...*finance.Account) *finance.Service {
	return finance.NewService(accounts, zap.NewNop())
}

func TestCreditAndDebit(t *testing.T) {
	s := newLedger(&finance.Account{ID: "bank"})

	require.NoError(t, s.Credit("bank", 100, "float"))
	balance, ok := s.Balance("bank")
	require.True(t, ok)
	assert.Equal(t, int64(100), balance)

	require.NoError(t, s.Debit("bank", 40, "payout"))
	balance, _ = s.Balance("bank")
	assert.Equal(t, int64(60), balance)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(100), entries[0].Amount)
	assert.Equal(t, int64(-40), entries[1].Amount)
	assert.Equal(t, "payout", entries[1].Memo)
}

func TestDebitInsufficientFunds(t *testing.T) {
	s := newLedger(&finance.Account{ID: "bank", Balance: 30})

	assert.Error(t, s.Debit("bank", 31, "too much"))
	balance, _ := s.Balance("bank")
	assert.Equal(t, int64(30), balance, "rejected debit changes nothing")
	assert.Empty(t, s.Entries())
}

func TestUnknownAccount(t *testing.T) {
	s := newLedger()
	assert.Error(t, s.Credit("ghost", 10, ""))
	assert.Error(t, s.Debit("ghost", 10, ""))
	_, ok := s.Balance("ghost")
	assert.False(t, ok)
	assert.False(t, s.IsSolvent("ghost", 0))
}

func TestNegativeAmountsRejected(t *testing.T) {
	s := newLedger(&finance.Account{ID: "bank", Balance: 100})
	assert.Error(t, s.Credit("bank", -1, ""))
	assert.Error(t, s.Debit("bank", -1, ""))
}

func TestIsSolvent(t *testing.T) {
	s := newLedger(&finance.Account{ID: "bank", Balance: 50})
	assert.True(t, s.IsSolvent("bank", 50))
	assert.False(t, s.IsSolvent("bank", 51))
}

func TestEnsureFundsAlreadyCovered(t *testing.T) {
	s := newLedger(&finance.Account{ID: "bank", Balance: 50})
	assert.True(t, s.EnsureFunds("bank", 50))
	assert.Empty(t, s.Entries(), "no transfer when already covered")
}

func TestEnsureFundsPullsShortfall(t *testing.T) {
	s := newLedger(
		&finance.Account{ID: "bank", Balance: 40, BackingAccountID: "reserve"},
		&finance.Account{ID: "reserve", Balance: 100},
	)

	assert.True(t, s.EnsureFunds("bank", 70))

	balance, _ := s.Balance("bank")
	assert.Equal(t, int64(70), balance)
	reserve, _ := s.Balance("reserve")
	assert.Equal(t, int64(70), reserve)
	assert.Len(t, s.Entries(), 2, "both legs of the transfer are recorded")
}

func TestEnsureFundsReserveTooSmall(t *testing.T) {
	s := newLedger(
		&finance.Account{ID: "bank", Balance: 40, BackingAccountID: "reserve"},
		&finance.Account{ID: "reserve", Balance: 10},
	)

	assert.False(t, s.EnsureFunds("bank", 70))
	balance, _ := s.Balance("bank")
	assert.Equal(t, int64(40), balance, "failed ensure moves nothing")
	reserve, _ := s.Balance("reserve")
	assert.Equal(t, int64(10), reserve)
}

func TestEnsureFundsNoBackingAccount(t *testing.T) {
	s := newLedger(&finance.Account{ID: "bank", Balance: 40})
	assert.False(t, s.EnsureFunds("bank", 70))
}

func TestPropertyBalanceMatchesEntrySum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newLedger(&finance.Account{ID: "bank"})

		expected := int64(0)
		n := rapid.IntRange(1, 30).Draw(t, "ops")
		for i := 0; i < n; i++ {
			amount := int64(rapid.IntRange(0, 500).Draw(t, "amount"))
			if rapid.Bool().Draw(t, "credit") {
				if err := s.Credit("bank", amount, "c"); err != nil {
					t.Fatalf("credit: %v", err)
				}
				expected += amount
			} else if err := s.Debit("bank", amount, "d"); err == nil {
				expected -= amount
			}
		}

		sum := int64(0)
		for _, e := range s.Entries() {
			sum += e.Amount
		}
		balance, _ := s.Balance("bank")
		if balance != expected || sum != expected {
			t.Fatalf("balance %d, entry sum %d, expected %d", balance, sum, expected)
		}
		if balance < 0 {
			t.Fatalf("balance went negative: %d", balance)
		}
	})
}
