package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/musky-network/muskyd/internal/api"
	"github.com/musky-network/muskyd/internal/app/ledger"
	"github.com/musky-network/muskyd/internal/app/mining"
	"github.com/musky-network/muskyd/internal/app/regen"
	"github.com/musky-network/muskyd/internal/app/spin"
	"github.com/musky-network/muskyd/internal/app/staking"
	"github.com/musky-network/muskyd/internal/app/sweep"
	"github.com/musky-network/muskyd/internal/daemon"
	"github.com/musky-network/muskyd/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the economy daemon",
	Long:  `Start the HTTP API, the storage layer, and the background sweep, and serve until interrupted.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log)

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return err
	}
	defer db.Close()

	led := ledger.New(db,
		ledger.WithAdminAccounts(cfg.Economy.AdminAccounts),
		ledger.WithSignupBonus(cfg.Economy.SignupBonus),
	)
	reg := regen.New(db, led)
	min := mining.New(db, led)
	sp := spin.New(db, led, reg)
	st := staking.New(db, led)

	if cfg.Sweep.Enabled {
		sweeper := sweep.New(db, min, log, cfg.Sweep.IntervalDuration())
		sweeper.Start()
		defer sweeper.Stop()
	}

	srv := api.NewServer(led, reg, min, sp, st, log)
	if cfg.Metrics.Enabled {
		srv.EnableMetrics()
	}

	httpSrv := &http.Server{
		Addr:    cfg.API.Addr(),
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.API.Addr()).Msg("muskyd listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// newLogger builds the process logger from config.
func newLogger(cfg daemon.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var w zerolog.LevelWriter
	if cfg.Pretty {
		w = zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		w = zerolog.MultiLevelWriter(os.Stderr)
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
