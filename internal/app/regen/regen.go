// Package regen implements the two regenerating resource pools: tap-energy
// and spin-stamina. Each pool refills gradually from a persisted checkpoint;
// consuming re-derives availability, checks, debits, and advances the
// checkpoint as one atomic unit per account.
//
// The regen model is a single checkpointed formula:
//
//	available = min(capacity, stored + floor(elapsedHours × capacity/windowHours))
//
// After a full window the formula yields capacity on its own, so no separate
// hard reset exists and the pool can never regenerate past capacity. The one
// way above capacity is a premium stamina purchase, which credits the stored
// value directly; regeneration stays suspended until the pool drops back
// under capacity.
package regen

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

// privilegedResource is the effectively unbounded pool value reported for
// privileged accounts.
const privilegedResource = 100000

// Service implements the resource regenerator.
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

// New creates a regenerator over the given store and ledger.
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

// ─── Availability ───────────────────────────────────────────────────────────

// Available returns the pool's current value for an account.
func (s *Service) Available(account string, pool domain.Pool) (int, error) {
	acct, err := s.ledger.Ensure(account)
	if err != nil {
		return 0, err
	}
	return availableFor(acct, pool, s.now()), nil
}

// availableFor derives a pool's value at the given instant.
func availableFor(acct *domain.Account, pool domain.Pool, now time.Time) int {
	if acct.Privileged {
		return privilegedResource
	}
	spec := pool.Spec()
	stored, checkpoint := poolState(acct, pool)
	if stored >= spec.Capacity {
		return stored
	}
	elapsed := now.Sub(checkpoint)
	if elapsed < 0 {
		elapsed = 0
	}
	regenerated := int(elapsed.Hours() * spec.RatePerHour())
	if stored+regenerated > spec.Capacity {
		return spec.Capacity
	}
	return stored + regenerated
}

func poolState(acct *domain.Account, pool domain.Pool) (int, time.Time) {
	if pool == domain.PoolStamina {
		return acct.Stamina, acct.LastStaminaReset
	}
	return acct.Energy, acct.LastEnergyReset
}

// ─── Consume ────────────────────────────────────────────────────────────────

// Consume debits cost from the pool, failing with InsufficientResource when
// the derived availability is short. Check and debit happen under the
// account lock; no two consumes can pass the check against the same stale
// value. Privileged accounts never fail and are never decremented.
func (s *Service) Consume(account string, pool domain.Pool, cost int) (int, error) {
	if cost <= 0 {
		return 0, fmt.Errorf("%w: cost must be positive", domain.ErrValidation)
	}
	s.locks.Lock(account)
	defer s.locks.Unlock(account)
	return s.consumeLocked(account, pool, cost)
}

func (s *Service) consumeLocked(account string, pool domain.Pool, cost int) (int, error) {
	acct, err := s.ledger.Ensure(account)
	if err != nil {
		return 0, err
	}
	now := s.now()
	available := availableFor(acct, pool, now)
	if acct.Privileged {
		return available, nil
	}
	if available < cost {
		observability.Reject("insufficient_resource")
		return available, fmt.Errorf("%w: %s %d/%d", domain.ErrInsufficientResource, pool, available, cost)
	}
	remaining := available - cost
	if err := s.store.UpdatePool(account, pool, remaining, now); err != nil {
		return available, err
	}
	return remaining, nil
}

// CreditStamina adds amount to the stamina pool, bounded by capacity.
// Used for the wheel's stamina prize, which bypasses the ledger.
func (s *Service) CreditStamina(account string, amount int) (int, error) {
	s.locks.Lock(account)
	defer s.locks.Unlock(account)

	acct, err := s.ledger.Ensure(account)
	if err != nil {
		return 0, err
	}
	now := s.now()
	available := availableFor(acct, domain.PoolStamina, now)
	if acct.Privileged {
		return available, nil
	}
	spec := domain.PoolStamina.Spec()
	credited := available + amount
	if credited > spec.Capacity {
		credited = spec.Capacity
	}
	// A purchased pool may already sit above capacity; never claw it back.
	if credited < available {
		credited = available
	}
	if err := s.store.UpdatePool(account, domain.PoolStamina, credited, now); err != nil {
		return available, err
	}
	return credited, nil
}

// ─── Tap ────────────────────────────────────────────────────────────────────

// TapResult is the outcome of one accepted tap.
type TapResult struct {
	Balance float64 `json:"balance"`
	Energy  int     `json:"energy"`
	Earned  float64 `json:"earned"`
}

// Tap consumes one energy and credits one MUSKY. Taps closer together than
// TapMinInterval are rejected before any state changes.
func (s *Service) Tap(account string) (TapResult, error) {
	s.locks.Lock(account)
	defer s.locks.Unlock(account)

	acct, err := s.ledger.Ensure(account)
	if err != nil {
		return TapResult{}, err
	}
	now := s.now()
	if !acct.Privileged && !acct.LastTapTime.IsZero() && now.Sub(acct.LastTapTime) < domain.TapMinInterval {
		observability.Reject("tap_too_fast")
		return TapResult{}, domain.ErrTapTooFast
	}

	energy, err := s.consumeLocked(account, domain.PoolEnergy, domain.EnergyPool.Cost)
	if err != nil {
		return TapResult{}, err
	}
	if err := s.store.SetTapTime(account, now); err != nil {
		return TapResult{}, err
	}

	balance, err := s.ledger.Adjust(account, domain.MUSKY, domain.MuskyPerTap, "tap:"+id.New())
	if err != nil {
		return TapResult{}, err
	}
	observability.TapsTotal.Inc()
	return TapResult{Balance: balance, Energy: energy, Earned: domain.MuskyPerTap}, nil
}

// ─── Stamina Purchase ───────────────────────────────────────────────────────

// PurchaseStamina tops up the stamina pool for Stars. One purchase per
// cooldown window; the Stars debit happens only after the cooldown and
// range checks pass, so a rejection leaves no partial effect.
func (s *Service) PurchaseStamina(account string, amount int, costStars float64) (int, error) {
	if amount < domain.StaminaPurchaseMin || amount > domain.StaminaPurchaseMax {
		return 0, fmt.Errorf("%w: stamina amount %d outside [%d,%d]",
			domain.ErrValidation, amount, domain.StaminaPurchaseMin, domain.StaminaPurchaseMax)
	}
	if costStars <= 0 {
		return 0, fmt.Errorf("%w: cost must be positive", domain.ErrValidation)
	}

	s.locks.Lock(account)
	defer s.locks.Unlock(account)

	acct, err := s.ledger.Ensure(account)
	if err != nil {
		return 0, err
	}
	now := s.now()
	if !acct.Privileged && !acct.LastStaminaPurchase.IsZero() &&
		now.Sub(acct.LastStaminaPurchase) < domain.StaminaPurchaseCooldown {
		observability.Reject("purchase_cooldown")
		return 0, domain.ErrPurchaseCooldown
	}

	if _, err := s.ledger.Adjust(account, domain.STARS, -costStars, "stamina-topup:"+id.New()); err != nil {
		return 0, err
	}

	// Purchased stamina credits the stored value directly and may sit
	// above capacity; regen stays suspended until it drops back under.
	stamina := availableFor(acct, domain.PoolStamina, now) + amount
	if err := s.store.UpdatePool(account, domain.PoolStamina, stamina, now); err != nil {
		return 0, err
	}
	if err := s.store.SetStaminaPurchase(account, now); err != nil {
		return 0, err
	}
	return stamina, nil
}
