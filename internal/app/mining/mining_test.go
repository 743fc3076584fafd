package mining

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

func newService(t *testing.T, opts ...ledger.Option) (*Service, *ledger.Service, *clock) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := &clock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	led := ledger.New(db, append(opts, ledger.WithClock(clk.Now))...)
	svc := New(db, led)
	svc.now = clk.Now
	return svc, led, clk
}

// fund gives the account enough of a currency to clear any catalog price.
func fund(t *testing.T, led *ledger.Service, account string, cur domain.Currency, amount float64) {
	t.Helper()
	_, err := led.Adjust(account, cur, amount, "test-fund:"+account+":"+string(cur))
	require.NoError(t, err)
}

func TestPurchase_DebitsAndSetsRate(t *testing.T) {
	svc, led, _ := newService(t)
	fund(t, led, "miner", domain.MUSKY, 100000)

	holding, rate, err := svc.Purchase("miner", "RTX4070", domain.MUSKY)
	require.NoError(t, err)
	assert.Equal(t, 1, holding.Counts["RTX4070"])
	assert.InDelta(t, 0.03, rate, 1e-9)

	acct, err := led.Ensure("miner")
	require.NoError(t, err)
	assert.InDelta(t, 100000+domain.SignupBonus-40000, acct.Balance(domain.MUSKY), 1e-9)
}

func TestPurchase_UnknownTier(t *testing.T) {
	svc, _, _ := newService(t)
	_, _, err := svc.Purchase("miner", "RTX9999", domain.MUSKY)
	assert.ErrorIs(t, err, domain.ErrUnknownTier)
}

func TestPurchase_UnpricedCurrency(t *testing.T) {
	svc, led, _ := newService(t)
	fund(t, led, "miner", domain.SOL, 1000)
	_, _, err := svc.Purchase("miner", "RTX4070", domain.SOL)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPurchase_PrerequisiteEnforced(t *testing.T) {
	svc, led, _ := newService(t)
	fund(t, led, "miner", domain.MUSKY, 1000000)

	_, _, err := svc.Purchase("miner", "RTX4090", domain.MUSKY)
	assert.ErrorIs(t, err, domain.ErrPrerequisiteNotMet)

	// Rejection debits nothing.
	acct, err := led.Ensure("miner")
	require.NoError(t, err)
	assert.InDelta(t, 1000000+domain.SignupBonus, acct.Balance(domain.MUSKY), 1e-9)

	_, _, err = svc.Purchase("miner", "RTX4070", domain.MUSKY)
	require.NoError(t, err)
	_, rate, err := svc.Purchase("miner", "RTX4090", domain.MUSKY)
	require.NoError(t, err)
	assert.InDelta(t, 0.03+0.08, rate, 1e-9)
}

func TestPurchase_PerTierCap(t *testing.T) {
	svc, led, _ := newService(t)
	fund(t, led, "miner", domain.MUSKY, 1000000)

	for i := 0; i < domain.MaxUnitsPerTier; i++ {
		_, _, err := svc.Purchase("miner", "RTX4070", domain.MUSKY)
		require.NoError(t, err)
	}
	_, _, err := svc.Purchase("miner", "RTX4070", domain.MUSKY)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestPurchase_TotalCap(t *testing.T) {
	svc, led, _ := newService(t)
	fund(t, led, "miner", domain.MUSKY, 10000000)
	fund(t, led, "miner", domain.STARS, 10000000)

	// Fill every tier to its cap: 4 tiers × 2 units = the account max.
	buys := []struct {
		tier string
		cur  domain.Currency
	}{
		{"RTX4070", domain.MUSKY}, {"RTX4070", domain.MUSKY},
		{"RTX4090", domain.MUSKY}, {"RTX4090", domain.MUSKY},
		{"RTX5070", domain.STARS}, {"RTX5070", domain.STARS},
		{"RTX5090", domain.STARS},
	}
	for _, b := range buys {
		_, _, err := svc.Purchase("miner", b.tier, b.cur)
		require.NoError(t, err, b.tier)
	}
	holding, rate, err := svc.Purchase("miner", "RTX5090", domain.STARS)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxTotalUnits, holding.Total())
	assert.InDelta(t, 2*0.03+2*0.08+2*0.25+2*0.50, rate, 1e-9)

	_, _, err = svc.Purchase("miner", "RTX5090", domain.STARS)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestPurchase_InsufficientFundsLeavesNoUnit(t *testing.T) {
	svc, _, _ := newService(t)
	// Signup bonus alone cannot cover the cheapest tier.
	_, _, err := svc.Purchase("miner", "RTX4070", domain.MUSKY)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	holding, rate, err := svc.Holdings("miner")
	require.NoError(t, err)
	assert.Zero(t, holding.Total())
	assert.Zero(t, rate)
}

func TestAccrue_CreditsProportionally(t *testing.T) {
	svc, led, clk := newService(t)
	fund(t, led, "miner", domain.MUSKY, 100000)
	_, _, err := svc.Purchase("miner", "RTX4070", domain.MUSKY)
	require.NoError(t, err)

	clk.Advance(12 * time.Hour)
	credited, err := svc.Accrue("miner")
	require.NoError(t, err)
	assert.InDelta(t, 0.015, credited, 1e-9)

	// Checkpoint advanced: an immediate second accrual credits nothing.
	credited, err = svc.Accrue("miner")
	require.NoError(t, err)
	assert.Zero(t, credited)

	clk.Advance(24 * time.Hour)
	credited, err = svc.Accrue("miner")
	require.NoError(t, err)
	assert.InDelta(t, 0.03, credited, 1e-9)
}

func TestAccrue_NoEquipmentAdvancesCheckpoint(t *testing.T) {
	svc, led, clk := newService(t)
	fund(t, led, "miner", domain.MUSKY, 100000)

	clk.Advance(48 * time.Hour)
	credited, err := svc.Accrue("miner")
	require.NoError(t, err)
	assert.Zero(t, credited)

	// Buying afterwards must not back-credit the rate-free interval.
	_, _, err = svc.Purchase("miner", "RTX4070", domain.MUSKY)
	require.NoError(t, err)
	credited, err = svc.Accrue("miner")
	require.NoError(t, err)
	assert.Zero(t, credited)
}

func TestAccrue_Privileged(t *testing.T) {
	svc, led, clk := newService(t, ledger.WithAdminAccounts([]string{"boss"}))
	_, err := led.Ensure("boss")
	require.NoError(t, err)

	clk.Advance(24 * time.Hour)
	credited, err := svc.Accrue("boss")
	require.NoError(t, err)
	assert.InDelta(t, domain.PrivilegedMiningRate(), credited, 1e-9)
}

func TestHoldings_PrivilegedSynthetic(t *testing.T) {
	svc, _, _ := newService(t, ledger.WithAdminAccounts([]string{"boss"}))

	holding, rate, err := svc.Holdings("boss")
	require.NoError(t, err)
	assert.Equal(t, 4*domain.MaxUnitsPerTier, holding.Total())
	assert.InDelta(t, domain.PrivilegedMiningRate(), rate, 1e-9)
}

func TestRecomputeRate_DropsPrunedUnits(t *testing.T) {
	svc, led, clk := newService(t)
	fund(t, led, "miner", domain.MUSKY, 100000)
	_, _, err := svc.Purchase("miner", "RTX4070", domain.MUSKY)
	require.NoError(t, err)

	// Past the 30 day term the unit still counts until pruned.
	clk.Advance(31 * 24 * time.Hour)
	_, rate, err := svc.Holdings("miner")
	require.NoError(t, err)
	assert.InDelta(t, 0.03, rate, 1e-9)

	// The active view already excludes it.
	active, err := svc.ActiveCounts("miner")
	require.NoError(t, err)
	assert.Zero(t, active["RTX4070"])

	n, err := svc.store.DeleteExpiredUnits(clk.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rate, err = svc.RecomputeRate("miner")
	require.NoError(t, err)
	assert.Zero(t, rate)
}
