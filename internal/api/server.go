// Package api provides the HTTP server for the Musky reward economy.
// It exposes the ledger, resource pools, mining, spin, and staking
// operations as a JSON REST API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/musky-network/muskyd/internal/app/ledger"
	"github.com/musky-network/muskyd/internal/app/mining"
	"github.com/musky-network/muskyd/internal/app/regen"
	"github.com/musky-network/muskyd/internal/app/spin"
	"github.com/musky-network/muskyd/internal/app/staking"
	"github.com/musky-network/muskyd/internal/domain"
	"github.com/musky-network/muskyd/internal/infra/observability"
)

// Version is the reported daemon version.
const Version = "0.1.0"

// Server is the muskyd HTTP API server.
type Server struct {
	ledger         *ledger.Service
	regen          *regen.Service
	mining         *mining.Service
	spin           *spin.Service
	staking        *staking.Service
	log            zerolog.Logger
	metricsEnabled bool
}

// NewServer creates a new API server over the economy services.
func NewServer(led *ledger.Service, reg *regen.Service, min *mining.Service, sp *spin.Service, st *staking.Service, log zerolog.Logger) *Server {
	return &Server{
		ledger:  led,
		regen:   reg,
		mining:  min,
		spin:    sp,
		staking: st,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	r.Route("/api/accounts/{account}", func(r chi.Router) {
		r.Get("/", s.handleAccount)
		r.Get("/ledger", s.handleLedgerHistory)
		r.Post("/tap", s.handleTap)
		r.Post("/spin", s.handleSpin)
		r.Get("/spins", s.handleSpinHistory)
		r.Get("/mining", s.handleHoldings)
		r.Post("/mining", s.handleEquipmentPurchase)
		r.Post("/mining/accrue", s.handleAccrue)
		r.Post("/stamina/purchase", s.handleStaminaPurchase)
		r.Post("/referral", s.handleReferral)
		r.Get("/staking", s.handlePositions)
		r.Post("/staking", s.handleStakeOpen)
	})

	r.Get("/api/staking/plans", s.handlePlans)
	r.Post("/api/staking/positions/{position}/close", s.handleStakeClose)
	r.Post("/api/payments/confirm", s.handlePaymentConfirm)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// requestLogger emits one structured line per request with its route,
// status, and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		observability.RequestDuration.WithLabelValues(r.Method + " " + routePattern(r)).Observe(elapsed.Seconds())
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

// routePattern returns the chi route template, falling back to the raw
// path for unmatched requests.
func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if p := ctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a service error onto its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor picks the HTTP status for a domain error. Conflicts with the
// account's current state map to 409, payment shortfalls to 402, and
// tap throttling to 429.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTapTooFast):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientResource):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPrerequisiteNotMet),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrPositionAlreadyClosed),
		errors.Is(err, domain.ErrPurchaseCooldown):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownTier),
		errors.Is(err, domain.ErrUnknownPlan):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
