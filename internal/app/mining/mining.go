// Package mining tracks owned mining equipment and continuously accrues the
// SOL settlement token from the account's stored aggregate daily rate.
//
// Purchases walk the fixed tier catalog: the prerequisite tier must be
// owned, a tier holds at most 2 units, an account at most 8, and the price
// is ledger-debited before the unit exists, so a rejected purchase leaves
// no partial state.
//
// The stored rate is the sum of tier rate × unit count at purchase time.
// Expired units keep contributing until the background sweep prunes them
// and recomputes the rate; Accrue deliberately reproduces that behavior.
package mining

import (
	"fmt"
	"time"

	"github.com/musky-network/muskyd/internal/app/ledger"
	"github.com/musky-network/muskyd/internal/domain"
	"github.com/musky-network/muskyd/internal/infra/id"
	"github.com/musky-network/muskyd/internal/infra/keylock"
	"github.com/musky-network/muskyd/internal/infra/observability"
	"github.com/musky-network/muskyd/internal/infra/sqlite"
)

// Service implements the mining accrual engine.
type Service struct {
	store  *sqlite.DB
	ledger *ledger.Service
	locks  *keylock.KeyLock
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a mining service over the given store and ledger.
func New(store *sqlite.DB, led *ledger.Service, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ledger: led,
		locks:  keylock.New(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─── Purchase ───────────────────────────────────────────────────────────────

// Purchase buys one unit of a tier in the chosen currency and returns the
// updated holding and aggregate daily rate.
func (s *Service) Purchase(account, tierID string, currency domain.Currency) (domain.Holding, float64, error) {
	tier, ok := domain.TierByID(tierID)
	if !ok {
		return domain.Holding{}, 0, fmt.Errorf("%w: %q", domain.ErrUnknownTier, tierID)
	}
	price, ok := tier.Prices[currency]
	if !ok {
		return domain.Holding{}, 0, fmt.Errorf("%w: tier %s is not priced in %s", domain.ErrValidation, tierID, currency)
	}

	s.locks.Lock(account)
	defer s.locks.Unlock(account)

	if _, err := s.ledger.Ensure(account); err != nil {
		return domain.Holding{}, 0, err
	}
	holding, err := s.store.HoldingFor(account)
	if err != nil {
		return domain.Holding{}, 0, err
	}

	if tier.Prereq != "" && holding.Counts[tier.Prereq] < 1 {
		observability.Reject("prerequisite_not_met")
		return holding, 0, fmt.Errorf("%w: %s requires %s", domain.ErrPrerequisiteNotMet, tierID, tier.Prereq)
	}
	if holding.Counts[tierID] >= tier.MaxCount {
		observability.Reject("capacity_exceeded")
		return holding, 0, fmt.Errorf("%w: %d of %s already owned", domain.ErrCapacityExceeded, holding.Counts[tierID], tierID)
	}
	if holding.Total() >= domain.MaxTotalUnits {
		observability.Reject("capacity_exceeded")
		return holding, 0, fmt.Errorf("%w: %d total units already owned", domain.ErrCapacityExceeded, holding.Total())
	}

	// Debit first: an InsufficientFunds rejection aborts before the unit
	// or the rate change exist.
	if _, err := s.ledger.Adjust(account, currency, -price, "equipment:"+id.New()); err != nil {
		return holding, 0, err
	}

	now := s.now()
	if err := s.store.InsertUnit(account, tierID, now.Add(tier.Duration)); err != nil {
		return holding, 0, err
	}
	holding, err = s.store.HoldingFor(account)
	if err != nil {
		return holding, 0, err
	}
	rate := aggregateRate(holding.Counts)
	if err := s.store.SetMiningRate(account, rate); err != nil {
		return holding, rate, err
	}

	observability.EquipmentPurchasesTotal.WithLabelValues(tierID).Inc()
	return holding, rate, nil
}

// aggregateRate sums tier rates over unit counts. Counts are taken as
// stored; expiration is the sweep's concern.
func aggregateRate(counts map[string]int) float64 {
	rate := 0.0
	for _, tier := range domain.EquipmentTiers() {
		rate += tier.RatePerDay * float64(counts[tier.ID])
	}
	return rate
}

// ─── Accrual ────────────────────────────────────────────────────────────────

// Accrue credits SOL earned since the last accrual checkpoint and advances
// the checkpoint. Safe at any cadence: the checkpoint only moves after a
// successful credit, so no interval is ever credited twice or lost.
func (s *Service) Accrue(account string) (float64, error) {
	s.locks.Lock(account)
	defer s.locks.Unlock(account)

	acct, err := s.ledger.Ensure(account)
	if err != nil {
		return 0, err
	}
	rate := acct.MiningRate
	if acct.Privileged {
		rate = domain.PrivilegedMiningRate()
	}

	now := s.now()
	elapsed := now.Sub(acct.LastAccrual)
	if elapsed <= 0 {
		return 0, nil
	}
	if rate == 0 {
		// Nothing to credit; advancing the checkpoint is harmless and
		// keeps later accruals from spanning a rate-free interval.
		return 0, s.store.SetLastAccrual(account, now)
	}

	credited := rate * elapsed.Seconds() / 86400
	if _, err := s.ledger.Adjust(account, domain.SOL, credited, "accrual:"+id.New()); err != nil {
		return 0, err
	}
	if err := s.store.SetLastAccrual(account, now); err != nil {
		return credited, err
	}
	observability.MiningAccruedSOL.Add(credited)
	return credited, nil
}

// ─── Holdings ───────────────────────────────────────────────────────────────

// Holdings returns the account's equipment and aggregate daily rate.
// Privileged accounts report the synthetic full holding regardless of
// stored data.
func (s *Service) Holdings(account string) (domain.Holding, float64, error) {
	acct, err := s.ledger.Ensure(account)
	if err != nil {
		return domain.Holding{}, 0, err
	}
	if acct.Privileged {
		h := domain.Holding{Counts: make(map[string]int), Expirations: make(map[string][]time.Time)}
		for _, tier := range domain.EquipmentTiers() {
			h.Counts[tier.ID] = domain.MaxUnitsPerTier
		}
		return h, domain.PrivilegedMiningRate(), nil
	}
	holding, err := s.store.HoldingFor(account)
	if err != nil {
		return domain.Holding{}, 0, err
	}
	return holding, acct.MiningRate, nil
}

// ActiveCounts returns per-tier counts of units that have not yet expired.
// The live rate may briefly exceed what these counts imply until the sweep
// prunes the expired units.
func (s *Service) ActiveCounts(account string) (map[string]int, error) {
	return s.store.ActiveCounts(account, s.now())
}

// RecomputeRate rebuilds the stored rate from the units currently on file.
// Called by the sweep after pruning expired units.
func (s *Service) RecomputeRate(account string) (float64, error) {
	s.locks.Lock(account)
	defer s.locks.Unlock(account)

	holding, err := s.store.HoldingFor(account)
	if err != nil {
		return 0, err
	}
	rate := aggregateRate(holding.Counts)
	return rate, s.store.SetMiningRate(account, rate)
}
