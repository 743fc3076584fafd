// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of the engine — it depends on nothing.
package domain

import "time"

// ─── Currencies ─────────────────────────────────────────────────────────────

// Currency identifies one of the three balances an account holds.
type Currency string

const (
	// MUSKY is the primary game token, earned by tapping and staking.
	MUSKY Currency = "MUSKY"
	// SOL is the secondary settlement token, accrued by mining equipment.
	SOL Currency = "SOL"
	// STARS is the premium currency, funded through confirmed payments.
	STARS Currency = "STARS"
)

// Currencies lists every supported currency in a stable order.
func Currencies() []Currency {
	return []Currency{MUSKY, SOL, STARS}
}

// Valid reports whether c names a known currency.
func (c Currency) Valid() bool {
	switch c {
	case MUSKY, SOL, STARS:
		return true
	}
	return false
}

// ─── Resource Pools ─────────────────────────────────────────────────────────

// Pool identifies one of the two regenerating resource pools.
type Pool string

const (
	PoolEnergy  Pool = "energy"  // spent by tapping
	PoolStamina Pool = "stamina" // spent by spinning the wheel
)

// PoolSpec describes a pool's regeneration parameters: it refills from
// empty to Capacity over Window, and each use costs Cost.
type PoolSpec struct {
	Capacity int
	Window   time.Duration
	Cost     int
}

// RatePerHour returns how many points the pool regenerates per hour.
func (p PoolSpec) RatePerHour() float64 {
	return float64(p.Capacity) / p.Window.Hours()
}

// ─── Account ────────────────────────────────────────────────────────────────

// Account is the per-user economic state. Accounts are created lazily on
// first use with zero balances and full resource pools.
type Account struct {
	ID         string               `json:"id"`
	Privileged bool                 `json:"privileged"`
	Balances   map[Currency]float64 `json:"balances"`

	Energy           int       `json:"energy"`
	LastEnergyReset  time.Time `json:"last_energy_reset"`
	Stamina          int       `json:"stamina"`
	LastStaminaReset time.Time `json:"last_stamina_reset"`

	LastTapTime         time.Time `json:"last_tap_time,omitempty"`
	LastStaminaPurchase time.Time `json:"last_stamina_purchase,omitempty"`

	// MiningRate is the stored aggregate accrual rate in SOL per day.
	MiningRate  float64   `json:"mining_rate"`
	LastAccrual time.Time `json:"last_accrual"`

	CreatedAt time.Time `json:"created_at"`
}

// Balance returns the account's balance in the given currency.
func (a *Account) Balance(c Currency) float64 {
	if a.Balances == nil {
		return 0
	}
	return a.Balances[c]
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

// LedgerEntry is one append-only row in the balance ledger. Entries are
// immutable once written; Reference is the idempotency key that guards
// against double application.
type LedgerEntry struct {
	ID        string    `json:"id"`
	Account   string    `json:"account"`
	Currency  Currency  `json:"currency"`
	Delta     float64   `json:"delta"`
	Reference string    `json:"reference"`
	Reason    string    `json:"reason,omitempty"`
	Balance   float64   `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

// ─── Equipment ──────────────────────────────────────────────────────────────

// EquipmentUnit is one purchased piece of mining equipment. Units are
// time-limited; expired units stop being honored but are only pruned by the
// background sweep.
type EquipmentUnit struct {
	ID        int64     `json:"id"`
	Account   string    `json:"account"`
	Tier      string    `json:"tier"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Holding summarizes an account's equipment: per-tier unit counts plus the
// expiration timestamps of every unit.
type Holding struct {
	Counts      map[string]int         `json:"counts"`
	Expirations map[string][]time.Time `json:"expirations"`
}

// Total returns the number of units across all tiers.
func (h Holding) Total() int {
	n := 0
	for _, c := range h.Counts {
		n += c
	}
	return n
}

// ─── Staking ────────────────────────────────────────────────────────────────

// PositionState is the lifecycle state of a staking position. A position
// leaves Active at most once.
type PositionState string

const (
	PositionActive         PositionState = "ACTIVE"
	PositionMatured        PositionState = "MATURED"
	PositionWithdrawnEarly PositionState = "WITHDRAWN_EARLY"
)

// StakingPosition is a fixed-term lock of principal against a plan.
type StakingPosition struct {
	ID        string        `json:"id"`
	Account   string        `json:"account"`
	PlanID    int           `json:"plan_id"`
	Principal float64       `json:"principal"`
	StartAt   time.Time     `json:"start_at"`
	EndAt     time.Time     `json:"end_at"`
	State     PositionState `json:"state"`
	ClosedAt  time.Time     `json:"closed_at,omitempty"`
	Returned  float64       `json:"returned,omitempty"`
}

// Matured reports whether the position has reached its end timestamp.
func (p StakingPosition) Matured(now time.Time) bool {
	return !now.Before(p.EndAt)
}

// ─── Spin Outcomes ──────────────────────────────────────────────────────────

// SpinOutcomeRecord is the append-only audit entry for one wheel draw.
type SpinOutcomeRecord struct {
	ID        string    `json:"id"`
	Account   string    `json:"account"`
	Kind      PrizeKind `json:"kind"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
