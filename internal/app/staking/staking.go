// Package staking manages fixed-term MUSKY lock positions. Opening debits
// the principal from the ledger; closing settles principal plus the
// maturity reward, or principal minus the early-withdrawal fee. The close
// path is guarded by a compare-and-set on the stored state, so concurrent
// closes of one position settle exactly once.
package staking

import (
	"fmt"
	"time"

	"github.com/musky-network/muskyd/internal/app/ledger"
	"github.com/musky-network/muskyd/internal/domain"
	"github.com/musky-network/muskyd/internal/infra/id"
	"github.com/musky-network/muskyd/internal/infra/observability"
	"github.com/musky-network/muskyd/internal/infra/sqlite"
)

// Service implements the staking engine.
type Service struct {
	store  *sqlite.DB
	ledger *ledger.Service
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a staking service over the given store and ledger.
func New(store *sqlite.DB, led *ledger.Service, opts ...Option) *Service {
	s := &Service{store: store, ledger: led, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open locks a MUSKY principal under the given plan and returns the new
// position. An InsufficientFunds rejection creates no position.
func (s *Service) Open(account string, planID int, principal float64) (domain.StakingPosition, error) {
	if account == "" {
		return domain.StakingPosition{}, fmt.Errorf("%w: account is required", domain.ErrValidation)
	}
	plan, ok := domain.PlanByID(planID)
	if !ok {
		return domain.StakingPosition{}, fmt.Errorf("%w: %d", domain.ErrUnknownPlan, planID)
	}
	if principal < plan.Minimum {
		observability.Reject("below_minimum")
		return domain.StakingPosition{}, fmt.Errorf("%w: plan %d requires at least %.0f MUSKY", domain.ErrValidation, planID, plan.Minimum)
	}

	pid := id.New()
	if _, err := s.ledger.Adjust(account, domain.MUSKY, -principal, "stake:"+pid); err != nil {
		return domain.StakingPosition{}, err
	}

	now := s.now()
	pos := domain.StakingPosition{
		ID:        pid,
		Account:   account,
		PlanID:    planID,
		Principal: principal,
		StartAt:   now,
		EndAt:     now.Add(plan.Duration()),
		State:     domain.PositionActive,
	}
	if err := s.store.InsertPosition(pos); err != nil {
		return domain.StakingPosition{}, err
	}

	observability.StakingOpensTotal.Inc()
	return pos, nil
}

// Close settles an active position. At or past maturity the holder gets
// principal plus the plan reward; before maturity, principal minus the
// early-withdrawal fee.
func (s *Service) Close(positionID string) (domain.StakingPosition, error) {
	pos, err := s.store.GetPosition(positionID)
	if err != nil {
		return domain.StakingPosition{}, err
	}
	if pos == nil {
		return domain.StakingPosition{}, fmt.Errorf("%w: %s", domain.ErrPositionNotFound, positionID)
	}
	if pos.State != domain.PositionActive {
		return *pos, fmt.Errorf("%w: %s is %s", domain.ErrPositionAlreadyClosed, positionID, pos.State)
	}

	plan, ok := domain.PlanByID(pos.PlanID)
	if !ok {
		return *pos, fmt.Errorf("%w: position %s references plan %d", domain.ErrUnknownPlan, positionID, pos.PlanID)
	}

	now := s.now()
	state, result := domain.PositionWithdrawnEarly, "early"
	returned := pos.Principal - plan.EarlyFee(pos.Principal)
	if pos.Matured(now) {
		state, result = domain.PositionMatured, "matured"
		returned = pos.Principal + plan.Reward(pos.Principal)
	}

	// The state transition is the race arbiter: only the caller whose
	// compare-and-set lands pays out.
	won, err := s.store.ClosePosition(positionID, state, now, returned)
	if err != nil {
		return *pos, err
	}
	if !won {
		return *pos, fmt.Errorf("%w: %s", domain.ErrPositionAlreadyClosed, positionID)
	}

	if _, err := s.ledger.Adjust(pos.Account, domain.MUSKY, returned, "unstake:"+positionID); err != nil {
		return *pos, err
	}

	pos.State = state
	pos.ClosedAt = now
	pos.Returned = returned
	observability.StakingClosesTotal.WithLabelValues(result).Inc()
	return *pos, nil
}

// Positions lists every position an account has ever opened, newest first.
func (s *Service) Positions(account string) ([]domain.StakingPosition, error) {
	if _, err := s.ledger.Ensure(account); err != nil {
		return nil, err
	}
	return s.store.ListPositions(account)
}

// Plans returns the fixed plan catalog.
func (s *Service) Plans() []domain.StakingPlan {
	return domain.StakingPlans()
}
