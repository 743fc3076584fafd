// Package ledger is the authoritative multi-currency balance store. Every
// other engine component debits and credits through Adjust exclusively.
//
// Guarantees:
//   - per-account serialization: two Adjust calls on one account never
//     interleave their read-modify-write
//   - idempotency: a reference is applied at most once; replays return the
//     current balance unchanged
//   - no negative balances for non-privileged accounts
//   - one append-only LedgerEntry per applied call, written atomically with
//     the balance it produced
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/musky-network/muskyd/internal/domain"
	"github.com/musky-network/muskyd/internal/infra/id"
	"github.com/musky-network/muskyd/internal/infra/keylock"
	"github.com/musky-network/muskyd/internal/infra/observability"
	"github.com/musky-network/muskyd/internal/infra/sqlite"
)

// Service implements the balance ledger.
type Service struct {
	store       *sqlite.DB
	locks       *keylock.KeyLock
	admins      map[string]bool
	signupBonus float64
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAdminAccounts marks the given account ids as privileged at creation.
func WithAdminAccounts(ids []string) Option {
	return func(s *Service) {
		for _, a := range ids {
			if a = strings.TrimSpace(a); a != "" {
				s.admins[a] = true
			}
		}
	}
}

// WithSignupBonus sets the MUSKY credit applied when an account is created.
func WithSignupBonus(amount float64) Option {
	return func(s *Service) { s.signupBonus = amount }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a ledger service over the given store.
func New(store *sqlite.DB, opts ...Option) *Service {
	s := &Service{
		store:       store,
		locks:       keylock.New(),
		admins:      make(map[string]bool),
		signupBonus: domain.SignupBonus,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ─── Adjust ─────────────────────────────────────────────────────────────────

// Adjust applies a balance delta for one account and currency, keyed by an
// idempotency reference, and returns the resulting balance. A previously
// applied reference is a success no-op.
func (s *Service) Adjust(account string, currency domain.Currency, delta float64, reference string) (float64, error) {
	if account == "" || reference == "" {
		return 0, fmt.Errorf("%w: account and reference are required", domain.ErrValidation)
	}
	if !currency.Valid() {
		return 0, fmt.Errorf("%w: currency %q", domain.ErrValidation, currency)
	}

	s.locks.Lock(account)
	defer s.locks.Unlock(account)
	return s.adjustLocked(account, currency, delta, reference, "")
}

// adjustLocked is Adjust with the account lock already held.
func (s *Service) adjustLocked(account string, currency domain.Currency, delta float64, reference, reason string) (float64, error) {
	acct, err := s.ensureLocked(account)
	if err != nil {
		return 0, err
	}

	applied, err := s.store.ReferenceExists(reference)
	if err != nil {
		return 0, err
	}
	if applied {
		observability.LedgerDuplicatesTotal.Inc()
		return acct.Balance(currency), nil
	}

	balance := acct.Balance(currency)
	if delta < 0 && !acct.Privileged && balance+delta < 0 {
		observability.Reject("insufficient_funds")
		return balance, fmt.Errorf("%w: %s balance %.4f, delta %.4f", domain.ErrInsufficientFunds, currency, balance, delta)
	}

	entry := domain.LedgerEntry{
		ID:        id.New(),
		Account:   account,
		Currency:  currency,
		Delta:     delta,
		Reference: reference,
		Reason:    reason,
		Balance:   balance + delta,
		Timestamp: s.now(),
	}
	if err := s.store.AppendEntry(entry); err != nil {
		return balance, err
	}
	observability.LedgerAdjustsTotal.WithLabelValues(string(currency)).Inc()
	return entry.Balance, nil
}

// ─── Accounts ───────────────────────────────────────────────────────────────

// Ensure returns the account, creating it lazily on first use with full
// resource pools and the signup credit.
func (s *Service) Ensure(account string) (*domain.Account, error) {
	if account == "" {
		return nil, fmt.Errorf("%w: account id required", domain.ErrValidation)
	}
	s.locks.Lock(account)
	defer s.locks.Unlock(account)
	return s.ensureLocked(account)
}

func (s *Service) ensureLocked(account string) (*domain.Account, error) {
	acct, err := s.store.GetAccount(account)
	if err != nil {
		return nil, err
	}
	if acct != nil {
		return acct, nil
	}

	now := s.now()
	fresh := &domain.Account{
		ID:               account,
		Privileged:       s.admins[account],
		Balances:         map[domain.Currency]float64{},
		Energy:           domain.EnergyPool.Capacity,
		LastEnergyReset:  now,
		Stamina:          domain.StaminaPool.Capacity,
		LastStaminaReset: now,
		LastAccrual:      now,
		CreatedAt:        now,
	}
	created, err := s.store.CreateAccount(fresh)
	if err != nil {
		return nil, err
	}
	if created && s.signupBonus > 0 && !fresh.Privileged {
		// The reference makes the signup credit idempotent even if two
		// callers race past CreateAccount.
		if _, err := s.adjustLocked(account, domain.MUSKY, s.signupBonus, "signup:"+account, "signup bonus"); err != nil {
			return nil, err
		}
	}
	return s.store.GetAccount(account)
}

// ─── Referrals & History ────────────────────────────────────────────────────

// ReferralCredit awards the referral bonus to the referrer, at most once
// per referee.
func (s *Service) ReferralCredit(referrer, referee string) (float64, error) {
	if referee == "" || referee == referrer {
		return 0, fmt.Errorf("%w: invalid referee", domain.ErrValidation)
	}
	return s.Adjust(referrer, domain.MUSKY, domain.ReferralBonus, "referral:"+referee)
}

// History returns recent ledger entries for an account, newest first.
func (s *Service) History(account string, limit int) ([]domain.LedgerEntry, error) {
	return s.store.RecentEntries(account, limit)
}
