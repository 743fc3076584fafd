// Package spin runs the weighted prize wheel. A draw debits stamina, picks
// an outcome from the fixed table, records it, and pays the prize through
// the ledger or the stamina pool.
package spin

import (
	"math/rand"
	"sync"
	"time"

	"github.com/musky-network/muskyd/internal/app/ledger"
	"github.com/musky-network/muskyd/internal/app/regen"
	"github.com/musky-network/muskyd/internal/domain"
	"github.com/musky-network/muskyd/internal/infra/id"
	"github.com/musky-network/muskyd/internal/infra/observability"
	"github.com/musky-network/muskyd/internal/infra/sqlite"
)

// Source yields draw rolls in [0, n). Injectable so tests can pin outcomes.
type Source interface {
	Intn(n int) int
}

// lockedSource serializes a math/rand generator for concurrent draws.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (l *lockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

// Service implements the draw engine.
type Service struct {
	store  *sqlite.DB
	ledger *ledger.Service
	regen  *regen.Service
	src    Source
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithSource overrides the roll source.
func WithSource(src Source) Option {
	return func(s *Service) { s.src = src }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a spin service with a time-seeded roll source.
func New(store *sqlite.DB, led *ledger.Service, reg *regen.Service, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ledger: led,
		regen:  reg,
		src:    &lockedSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is one settled draw.
type Result struct {
	Record  domain.SpinOutcomeRecord `json:"outcome"`
	Stamina int                      `json:"stamina"`
}

// Draw debits the stamina cost, rolls the wheel, and settles the prize.
// The cost is consumed before the roll, so an InsufficientResource
// rejection produces no outcome record.
func (s *Service) Draw(account string) (Result, error) {
	if account == "" {
		return Result{}, domain.ErrValidation
	}

	stamina, err := s.regen.Consume(account, domain.PoolStamina, domain.SpinCost)
	if err != nil {
		return Result{}, err
	}

	prize := pick(s.src.Intn(domain.SpinWeightTotal))
	rec := domain.SpinOutcomeRecord{
		ID:        id.New(),
		Account:   account,
		Kind:      prize.Kind,
		Amount:    prize.Amount,
		Timestamp: s.now(),
	}
	// The audit record lands before the payout so a settlement failure is
	// visible against a recorded draw rather than a vanished one.
	if err := s.store.InsertSpinOutcome(rec); err != nil {
		return Result{}, err
	}

	switch prize.Kind {
	case domain.PrizeStamina:
		stamina, err = s.regen.CreditStamina(account, int(prize.Amount))
	case domain.PrizeMusky:
		_, err = s.ledger.Adjust(account, domain.MUSKY, prize.Amount, "spin:"+rec.ID)
	case domain.PrizeSolana:
		_, err = s.ledger.Adjust(account, domain.SOL, prize.Amount, "spin:"+rec.ID)
	}
	if err != nil {
		return Result{Record: rec, Stamina: stamina}, err
	}

	observability.SpinsTotal.WithLabelValues(string(prize.Kind)).Inc()
	return Result{Record: rec, Stamina: stamina}, nil
}

// pick maps a roll in [0, SpinWeightTotal) onto the prize table by
// cumulative weight, in declaration order.
func pick(roll int) domain.SpinPrize {
	cum := 0
	prizes := domain.SpinPrizes()
	for _, p := range prizes {
		cum += p.Weight
		if roll < cum {
			return p
		}
	}
	return prizes[len(prizes)-1]
}

// History returns up to limit recent draws for an account, newest first.
func (s *Service) History(account string, limit int) ([]domain.SpinOutcomeRecord, error) {
	return s.store.RecentSpinOutcomes(account, limit)
}
