package regen

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musky-network/muskyd/internal/app/ledger"
	"github.com/musky-network/muskyd/internal/domain"
	"github.com/musky-network/muskyd/internal/infra/sqlite"
)

// clock is a settable time source shared by the ledger and regenerator.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T, ledgerOpts ...ledger.Option) (*Service, *clock) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts := append([]ledger.Option{ledger.WithClock(c.Now)}, ledgerOpts...)
	led := ledger.New(db, opts...)
	s := New(db, led)
	s.now = c.Now
	return s, c
}

// ─── Regen Model ────────────────────────────────────────────────────────────

func TestAvailable_FullOnCreation(t *testing.T) {
	s, _ := newTestService(t)

	got, err := s.Available("u1", domain.PoolEnergy)
	require.NoError(t, err)
	assert.Equal(t, domain.EnergyPool.Capacity, got)
}

func TestAvailable_GradualRegen(t *testing.T) {
	s, c := newTestService(t)

	// Drain the pool completely: capacity 1000, window 4h → 250/hr.
	_, err := s.Consume("u1", domain.PoolEnergy, domain.EnergyPool.Capacity)
	require.NoError(t, err)

	c.Advance(2 * time.Hour)
	got, err := s.Available("u1", domain.PoolEnergy)
	require.NoError(t, err)
	assert.Equal(t, 500, got)
}

func TestAvailable_NeverExceedsCapacity(t *testing.T) {
	s, c := newTestService(t)

	_, err := s.Consume("u1", domain.PoolEnergy, 600)
	require.NoError(t, err)

	for _, advance := range []time.Duration{time.Hour, 4 * time.Hour, 100 * time.Hour} {
		c.Advance(advance)
		got, err := s.Available("u1", domain.PoolEnergy)
		require.NoError(t, err)
		assert.LessOrEqual(t, got, domain.EnergyPool.Capacity)
	}

	got, err := s.Available("u1", domain.PoolEnergy)
	require.NoError(t, err)
	assert.Equal(t, domain.EnergyPool.Capacity, got)
}

func TestConsume_DebitsAndCheckpoints(t *testing.T) {
	s, c := newTestService(t)

	remaining, err := s.Consume("u1", domain.PoolStamina, domain.SpinCost)
	require.NoError(t, err)
	assert.Equal(t, domain.StaminaPool.Capacity-domain.SpinCost, remaining)

	// 1200 over 12h → 100/hr; one hour restores 100.
	c.Advance(time.Hour)
	got, err := s.Available("u1", domain.PoolStamina)
	require.NoError(t, err)
	assert.Equal(t, 300, got)
}

func TestConsume_InsufficientResource(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Consume("u1", domain.PoolStamina, domain.StaminaPool.Capacity)
	require.NoError(t, err)

	_, err = s.Consume("u1", domain.PoolStamina, domain.SpinCost)
	assert.ErrorIs(t, err, domain.ErrInsufficientResource)
}

func TestConsume_ConcurrentOverdrawPrevented(t *testing.T) {
	s, _ := newTestService(t)

	// Pool holds 1200; two concurrent 1000-unit consumes must not both pass.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = s.Consume("u1", domain.PoolStamina, domain.SpinCost)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientResource)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestConsume_PrivilegedUnbounded(t *testing.T) {
	s, _ := newTestService(t, ledger.WithAdminAccounts([]string{"boss"}))

	for i := 0; i < 5; i++ {
		remaining, err := s.Consume("boss", domain.PoolStamina, domain.SpinCost)
		require.NoError(t, err)
		assert.Equal(t, privilegedResource, remaining, "privileged pool is never decremented")
	}
}

func TestCreditStamina_BoundedByCapacity(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Consume("u1", domain.PoolStamina, domain.SpinCost) // 1200 → 200
	require.NoError(t, err)

	got, err := s.CreditStamina("u1", 500)
	require.NoError(t, err)
	assert.Equal(t, 700, got)

	got, err = s.CreditStamina("u1", 10000)
	require.NoError(t, err)
	assert.Equal(t, domain.StaminaPool.Capacity, got)
}

func TestCreditStamina_AboveCapacityPoolUnchanged(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.ledger.Adjust("u1", domain.STARS, 500, "pay-1")
	require.NoError(t, err)
	stamina, err := s.PurchaseStamina("u1", 2000, 300) // 1200 + 2000 == 3200
	require.NoError(t, err)
	require.Equal(t, 3200, stamina)

	// Credits fill only up to capacity; a purchased surplus neither grows
	// further nor gets clawed back.
	got, err := s.CreditStamina("u1", 500)
	require.NoError(t, err)
	assert.Equal(t, 3200, got)
}

// ─── Tap ────────────────────────────────────────────────────────────────────

func TestTap_ConsumesEnergyAndCreditsMusky(t *testing.T) {
	s, c := newTestService(t, ledger.WithSignupBonus(0))

	res, err := s.Tap("u1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Balance)
	assert.Equal(t, domain.EnergyPool.Capacity-1, res.Energy)
	assert.Equal(t, 1.0, res.Earned)

	c.Advance(200 * time.Millisecond)
	res, err = s.Tap("u1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Balance)
}

func TestTap_RateLimited(t *testing.T) {
	s, c := newTestService(t)

	_, err := s.Tap("u1")
	require.NoError(t, err)

	c.Advance(50 * time.Millisecond)
	_, err = s.Tap("u1")
	assert.ErrorIs(t, err, domain.ErrTapTooFast)

	c.Advance(60 * time.Millisecond)
	_, err = s.Tap("u1")
	assert.NoError(t, err)
}

func TestTap_FailsWithoutEnergy(t *testing.T) {
	s, c := newTestService(t)

	_, err := s.Consume("u1", domain.PoolEnergy, domain.EnergyPool.Capacity)
	require.NoError(t, err)

	c.Advance(time.Second)
	_, err = s.Tap("u1")
	assert.ErrorIs(t, err, domain.ErrInsufficientResource)
}

// ─── Stamina Purchase ───────────────────────────────────────────────────────

func TestPurchaseStamina_DebitsStarsAndCredits(t *testing.T) {
	s, _ := newTestService(t)

	// Fund the premium balance first.
	_, err := s.ledger.Adjust("u1", domain.STARS, 500, "pay-1")
	require.NoError(t, err)

	stamina, err := s.PurchaseStamina("u1", 2000, 300)
	require.NoError(t, err)
	// Full pool 1200 + 2000 purchased == 3200; purchases may exceed capacity.
	assert.Equal(t, 3200, stamina)

	acct, err := s.ledger.Ensure("u1")
	require.NoError(t, err)
	assert.Equal(t, 200.0, acct.Balance(domain.STARS))
}

func TestPurchaseStamina_Cooldown(t *testing.T) {
	s, c := newTestService(t)

	_, err := s.ledger.Adjust("u1", domain.STARS, 1000, "pay-1")
	require.NoError(t, err)

	_, err = s.PurchaseStamina("u1", 1000, 100)
	require.NoError(t, err)

	_, err = s.PurchaseStamina("u1", 1000, 100)
	assert.ErrorIs(t, err, domain.ErrPurchaseCooldown)

	c.Advance(domain.StaminaPurchaseCooldown)
	_, err = s.PurchaseStamina("u1", 1000, 100)
	assert.NoError(t, err)
}

func TestPurchaseStamina_InsufficientStarsLeavesNoEffect(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.PurchaseStamina("u1", 1000, 100)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Cooldown must not have been consumed by the failed attempt.
	_, err = s.ledger.Adjust("u1", domain.STARS, 100, "pay-1")
	require.NoError(t, err)
	_, err = s.PurchaseStamina("u1", 1000, 100)
	assert.NoError(t, err)
}

func TestPurchaseStamina_ValidatesRange(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.PurchaseStamina("u1", 999, 100)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.PurchaseStamina("u1", 10001, 100)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
