// Package sweep runs the periodic maintenance pass: pruning expired mining
// equipment, rebuilding the affected accounts' rates, and rolling every
// mining account's accrual forward so idle accounts do not accumulate an
// unbounded uncredited interval.
package sweep

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/musky-network/muskyd/internal/app/mining"
	"github.com/musky-network/muskyd/internal/infra/observability"
	"github.com/musky-network/muskyd/internal/infra/sqlite"
)

// Sweeper drives the maintenance pass on a fixed schedule.
type Sweeper struct {
	store  *sqlite.DB
	mining *mining.Service
	log    zerolog.Logger
	cron   *cron.Cron
	now    func() time.Time
}

// New creates a sweeper that runs every interval once started.
func New(store *sqlite.DB, min *mining.Service, log zerolog.Logger, interval time.Duration) *Sweeper {
	s := &Sweeper{
		store:  store,
		mining: min,
		log:    log.With().Str("component", "sweep").Logger(),
		cron:   cron.New(),
		now:    time.Now,
	}
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		if err := s.RunOnce(); err != nil {
			s.log.Error().Err(err).Msg("sweep failed")
		}
	}))
	return s
}

// Start begins the schedule in a background goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info().Msg("sweeper started")
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("sweeper stopped")
}

// RunOnce executes one full maintenance pass. Each step is idempotent, so
// an overlapping or repeated pass is harmless.
func (s *Sweeper) RunOnce() error {
	now := s.now()

	affected, err := s.store.AccountsWithExpiredUnits(now)
	if err != nil {
		return err
	}
	if len(affected) > 0 {
		// Accrue at the old rate first: the interval up to now was earned
		// under the units that are about to be pruned.
		for _, account := range affected {
			if _, err := s.mining.Accrue(account); err != nil {
				s.log.Error().Err(err).Str("account", account).Msg("pre-prune accrual failed")
			}
		}
		pruned, err := s.store.DeleteExpiredUnits(now)
		if err != nil {
			return err
		}
		observability.SweepPrunedUnits.Add(float64(pruned))
		s.log.Info().Int64("units", pruned).Int("accounts", len(affected)).Msg("pruned expired equipment")

		for _, account := range affected {
			rate, err := s.mining.RecomputeRate(account)
			if err != nil {
				s.log.Error().Err(err).Str("account", account).Msg("rate recompute failed")
				continue
			}
			s.log.Debug().Str("account", account).Float64("rate", rate).Msg("rate rebuilt")
		}
	}

	accounts, err := s.store.AccountsWithMiningRate()
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if _, err := s.mining.Accrue(account); err != nil {
			s.log.Error().Err(err).Str("account", account).Msg("accrual failed")
		}
	}
	return nil
}
