package cli

import (
	"github.com/spf13/cobra"

	"github.com/musky-network/muskyd/internal/app/ledger"
	"github.com/musky-network/muskyd/internal/app/mining"
	"github.com/musky-network/muskyd/internal/app/sweep"
	"github.com/musky-network/muskyd/internal/daemon"
	"github.com/musky-network/muskyd/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one maintenance pass and exit",
	Long:  `Prune expired mining equipment, rebuild affected rates, and settle pending accruals, then exit. Useful from cron when the daemon's own schedule is disabled.`,
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log)

	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return err
	}
	defer db.Close()

	led := ledger.New(db,
		ledger.WithAdminAccounts(cfg.Economy.AdminAccounts),
		ledger.WithSignupBonus(cfg.Economy.SignupBonus),
	)
	min := mining.New(db, led)
	return sweep.New(db, min, log, cfg.Sweep.IntervalDuration()).RunOnce()
}
