// Package observability exposes Prometheus metrics for the economy engine:
// operation counters by outcome, reward amounts, and rejection counts by
// error kind. Metrics are registered once at package load; the /metrics
// endpoint is mounted by the API server when enabled.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Operation Counters ─────────────────────────────────────────────────────

var (
	TapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musky_taps_total",
		Help: "Accepted tap actions.",
	})

	SpinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musky_spins_total",
		Help: "Completed wheel draws by prize kind.",
	}, []string{"kind"})

	EquipmentPurchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musky_equipment_purchases_total",
		Help: "Successful equipment purchases by tier.",
	}, []string{"tier"})

	StakingOpensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musky_staking_opens_total",
		Help: "Opened staking positions.",
	})

	StakingClosesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musky_staking_closes_total",
		Help: "Closed staking positions by result (matured, early).",
	}, []string{"result"})

	LedgerAdjustsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musky_ledger_adjusts_total",
		Help: "Applied ledger adjustments by currency.",
	}, []string{"currency"})

	LedgerDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musky_ledger_duplicate_references_total",
		Help: "Adjust calls deduplicated by idempotency reference.",
	})

	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musky_rejections_total",
		Help: "Business-rule rejections by error kind.",
	}, []string{"kind"})
)

// ─── Amount Metrics ─────────────────────────────────────────────────────────

var (
	MiningAccruedSOL = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musky_mining_accrued_sol_total",
		Help: "SOL credited by the mining accrual engine.",
	})

	SweepPrunedUnits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musky_sweep_pruned_units_total",
		Help: "Expired equipment units removed by the background sweep.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "musky_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Reject records one rejection with the given error kind label.
func Reject(kind string) {
	RejectionsTotal.WithLabelValues(kind).Inc()
}
