package domain

import "time"

// ─── Resource Pool Catalog ──────────────────────────────────────────────────

// EnergyPool: 1000 points regenerating over 4 hours, 1 point per tap.
// StaminaPool: 1200 points regenerating over 12 hours, 1000 per spin.
var (
	EnergyPool  = PoolSpec{Capacity: 1000, Window: 4 * time.Hour, Cost: 1}
	StaminaPool = PoolSpec{Capacity: 1200, Window: 12 * time.Hour, Cost: 1000}
)

// Spec returns the parameters for the named pool.
func (p Pool) Spec() PoolSpec {
	if p == PoolStamina {
		return StaminaPool
	}
	return EnergyPool
}

// MuskyPerTap is the primary-token reward for one tap.
const MuskyPerTap = 1

// TapMinInterval rejects taps that arrive faster than a human can produce.
const TapMinInterval = 100 * time.Millisecond

// Stamina top-up bounds (premium purchase, once per cooldown window).
const (
	StaminaPurchaseMin      = 1000
	StaminaPurchaseMax      = 10000
	StaminaPurchaseCooldown = 24 * time.Hour
)

// ─── Equipment Catalog ──────────────────────────────────────────────────────

// EquipmentTier describes one purchasable class of mining equipment.
// Prereq names the tier the account must own at least one unit of before
// this tier unlocks; empty means always available.
type EquipmentTier struct {
	ID         string
	Name       string
	RatePerDay float64 // SOL accrued per day per unit
	Duration   time.Duration
	MaxCount   int
	Prereq     string
	Prices     map[Currency]float64
}

// MaxUnitsPerTier and MaxTotalUnits bound every account's holding.
const (
	MaxUnitsPerTier = 2
	MaxTotalUnits   = 8
)

// EquipmentTiers returns the fixed catalog in unlock order.
func EquipmentTiers() []EquipmentTier {
	return []EquipmentTier{
		{
			ID:         "RTX4070",
			Name:       "RTX 4070",
			RatePerDay: 0.03,
			Duration:   30 * 24 * time.Hour,
			MaxCount:   MaxUnitsPerTier,
			Prices:     map[Currency]float64{MUSKY: 40000, STARS: 12000},
		},
		{
			ID:         "RTX4090",
			Name:       "RTX 4090",
			RatePerDay: 0.08,
			Duration:   30 * 24 * time.Hour,
			MaxCount:   MaxUnitsPerTier,
			Prereq:     "RTX4070",
			Prices:     map[Currency]float64{MUSKY: 75000, STARS: 25000},
		},
		{
			ID:         "RTX5070",
			Name:       "RTX 5070",
			RatePerDay: 0.25,
			Duration:   10 * 24 * time.Hour,
			MaxCount:   MaxUnitsPerTier,
			Prereq:     "RTX4090",
			Prices:     map[Currency]float64{STARS: 60000},
		},
		{
			ID:         "RTX5090",
			Name:       "RTX 5090 MAX",
			RatePerDay: 0.50,
			Duration:   10 * 24 * time.Hour,
			MaxCount:   MaxUnitsPerTier,
			Prereq:     "RTX5070",
			Prices:     map[Currency]float64{STARS: 120000},
		},
	}
}

// TierByID looks up a catalog tier.
func TierByID(id string) (EquipmentTier, bool) {
	for _, t := range EquipmentTiers() {
		if t.ID == id {
			return t, true
		}
	}
	return EquipmentTier{}, false
}

// PrivilegedMiningRate is the synthetic aggregate rate reported for
// privileged accounts: 2 of every tier.
func PrivilegedMiningRate() float64 {
	rate := 0.0
	for _, t := range EquipmentTiers() {
		rate += t.RatePerDay * MaxUnitsPerTier
	}
	return rate
}

// ─── Staking Plan Catalog ───────────────────────────────────────────────────

// StakingPlan is a fixed-term lock offer. APY and the early-withdrawal fee
// are nominal annual percentages, frozen at open time.
type StakingPlan struct {
	ID           int
	DurationDays int
	APY          float64
	Minimum      float64
	EarlyFeePct  float64
}

// Duration returns the plan's lock period as a wall-clock duration.
func (p StakingPlan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// Reward returns the maturity reward for a principal under this plan.
func (p StakingPlan) Reward(principal float64) float64 {
	return principal * (p.APY / 365 / 100) * float64(p.DurationDays)
}

// EarlyFee returns the penalty withheld on early withdrawal.
func (p StakingPlan) EarlyFee(principal float64) float64 {
	return principal * p.EarlyFeePct / 100
}

// StakingPlans returns the fixed plan catalog.
func StakingPlans() []StakingPlan {
	return []StakingPlan{
		{ID: 1, DurationDays: 7, APY: 5, Minimum: 1000, EarlyFeePct: 20},
		{ID: 2, DurationDays: 30, APY: 12, Minimum: 5000, EarlyFeePct: 15},
		{ID: 3, DurationDays: 90, APY: 25, Minimum: 20000, EarlyFeePct: 10},
		{ID: 4, DurationDays: 180, APY: 40, Minimum: 50000, EarlyFeePct: 5},
	}
}

// PlanByID looks up a staking plan.
func PlanByID(id int) (StakingPlan, bool) {
	for _, p := range StakingPlans() {
		if p.ID == id {
			return p, true
		}
	}
	return StakingPlan{}, false
}

// ─── Spin Prize Table ───────────────────────────────────────────────────────

// PrizeKind classifies a wheel outcome.
type PrizeKind string

const (
	PrizeMusky   PrizeKind = "musky"   // credited to the MUSKY balance
	PrizeSolana  PrizeKind = "solana"  // credited to the SOL balance
	PrizeStamina PrizeKind = "stamina" // credited to the stamina pool, not the ledger
)

// SpinPrize is one weighted wheel outcome.
type SpinPrize struct {
	Kind   PrizeKind
	Amount float64
	Weight int
}

// SpinWeightTotal is the design constant the table weights sum to; each
// weight point is 0.01% probability.
const SpinWeightTotal = 10000

// SpinCost is the stamina debited per draw.
const SpinCost = 1000

// SpinPrizes returns the fixed wheel table in declaration order. Draws
// resolve ties by declaration order, never by weight magnitude.
func SpinPrizes() []SpinPrize {
	return []SpinPrize{
		{Kind: PrizeSolana, Amount: 1, Weight: 1},
		{Kind: PrizeSolana, Amount: 0.5, Weight: 10},
		{Kind: PrizeSolana, Amount: 0.1, Weight: 100},
		{Kind: PrizeMusky, Amount: 1000, Weight: 4000},
		{Kind: PrizeMusky, Amount: 2000, Weight: 2500},
		{Kind: PrizeMusky, Amount: 5000, Weight: 1500},
		{Kind: PrizeMusky, Amount: 10000, Weight: 500},
		{Kind: PrizeStamina, Amount: 500, Weight: 1000},
		{Kind: PrizeSolana, Amount: 0.01, Weight: 389},
	}
}

// ─── Referral & Signup ──────────────────────────────────────────────────────

const (
	// SignupBonus is the MUSKY credit a new account starts with.
	SignupBonus = 1000
	// ReferralBonus is the MUSKY credit per successful referral.
	ReferralBonus = 2000
)
