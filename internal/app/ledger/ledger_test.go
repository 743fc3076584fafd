package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musky-network/muskyd/internal/domain"
	"github.com/musky-network/muskyd/internal/infra/sqlite"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, opts...)
}

func TestEnsure_CreatesLazilyWithSignupBonus(t *testing.T) {
	s := newTestService(t)

	acct, err := s.Ensure("u1")
	require.NoError(t, err)
	assert.Equal(t, float64(domain.SignupBonus), acct.Balance(domain.MUSKY))
	assert.Equal(t, domain.EnergyPool.Capacity, acct.Energy)
	assert.Equal(t, domain.StaminaPool.Capacity, acct.Stamina)
	assert.False(t, acct.Privileged)

	// Second Ensure must not re-credit.
	acct, err = s.Ensure("u1")
	require.NoError(t, err)
	assert.Equal(t, float64(domain.SignupBonus), acct.Balance(domain.MUSKY))
}

func TestEnsure_PrivilegedFromConfig(t *testing.T) {
	s := newTestService(t, WithAdminAccounts([]string{"boss"}))

	acct, err := s.Ensure("boss")
	require.NoError(t, err)
	assert.True(t, acct.Privileged)
	// Privileged accounts skip the signup credit; their balances are
	// unchecked anyway.
	assert.Equal(t, 0.0, acct.Balance(domain.MUSKY))
}

func TestAdjust_Conservation(t *testing.T) {
	s := newTestService(t, WithSignupBonus(0))

	deltas := []float64{100, -30, 250, -70}
	total := 0.0
	for _, d := range deltas {
		bal, err := s.Adjust("u1", domain.MUSKY, d, ref())
		require.NoError(t, err)
		total += d
		assert.InDelta(t, total, bal, 1e-9)
	}
}

func TestAdjust_RejectsOverdraw(t *testing.T) {
	s := newTestService(t, WithSignupBonus(0))

	_, err := s.Adjust("u1", domain.MUSKY, 50, "r1")
	require.NoError(t, err)

	bal, err := s.Adjust("u1", domain.MUSKY, -51, "r2")
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, 50.0, bal, "failed adjust must leave balance unchanged")

	// The rejected reference was not consumed.
	bal, err = s.Adjust("u1", domain.MUSKY, -50, "r2")
	require.NoError(t, err)
	assert.Equal(t, 0.0, bal)
}

func TestAdjust_PrivilegedMayGoNegative(t *testing.T) {
	s := newTestService(t, WithAdminAccounts([]string{"boss"}))

	bal, err := s.Adjust("boss", domain.SOL, -5, "r1")
	require.NoError(t, err)
	assert.Equal(t, -5.0, bal)
}

func TestAdjust_IdempotentByReference(t *testing.T) {
	s := newTestService(t, WithSignupBonus(0))

	bal, err := s.Adjust("u1", domain.STARS, 100, "pay-123")
	require.NoError(t, err)
	assert.Equal(t, 100.0, bal)

	// Replaying the same reference is a success no-op.
	for i := 0; i < 3; i++ {
		bal, err = s.Adjust("u1", domain.STARS, 100, "pay-123")
		require.NoError(t, err)
		assert.Equal(t, 100.0, bal)
	}

	entries, err := s.History("u1", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAdjust_ValidatesInput(t *testing.T) {
	s := newTestService(t)

	_, err := s.Adjust("", domain.MUSKY, 1, "r")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Adjust("u1", domain.MUSKY, 1, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Adjust("u1", domain.Currency("DOGE"), 1, "r")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAdjust_ConcurrentDebitsSerialize(t *testing.T) {
	s := newTestService(t, WithSignupBonus(0))

	_, err := s.Adjust("u1", domain.MUSKY, 150, "seed")
	require.NoError(t, err)

	// Two concurrent −100 debits against a 150 balance: exactly one may
	// succeed, the other must fail with InsufficientFunds.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = s.Adjust("u1", domain.MUSKY, -100, ref())
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			require.True(t, errors.Is(err, domain.ErrInsufficientFunds), "unexpected error: %v", err)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	acct, err := s.Ensure("u1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, acct.Balance(domain.MUSKY))
}

func TestReferralCredit_OncePerReferee(t *testing.T) {
	s := newTestService(t, WithSignupBonus(0))

	bal, err := s.ReferralCredit("alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, float64(domain.ReferralBonus), bal)

	// Same referee again: no double award.
	bal, err = s.ReferralCredit("alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, float64(domain.ReferralBonus), bal)

	_, err = s.ReferralCredit("alice", "alice")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWithClock(t *testing.T) {
	frozen := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(t, WithSignupBonus(0), WithClock(func() time.Time { return frozen }))

	_, err := s.Adjust("u1", domain.MUSKY, 10, "r1")
	require.NoError(t, err)

	entries, err := s.History("u1", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, frozen, entries[0].Timestamp)
}

// ref returns a fresh single-use idempotency reference.
func ref() string {
	return "ref-" + uuid.NewString()
}
