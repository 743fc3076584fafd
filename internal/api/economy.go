package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/musky-network/muskyd/internal/domain"
)

// ─── Economy API ────────────────────────────────────────────────────────────
// REST endpoints for the bot and mini-app frontends.
//
// GET  /api/accounts/{account}                 — balances and pool snapshot
// GET  /api/accounts/{account}/ledger          — recent ledger entries
// POST /api/accounts/{account}/tap             — earn MUSKY for one energy
// POST /api/accounts/{account}/spin            — run one wheel draw
// GET  /api/accounts/{account}/spins           — recent draws
// GET  /api/accounts/{account}/mining          — equipment holding + rate
// POST /api/accounts/{account}/mining          — buy one equipment unit
// POST /api/accounts/{account}/mining/accrue   — settle mined SOL
// POST /api/accounts/{account}/stamina/purchase — top up stamina for Stars
// POST /api/accounts/{account}/referral        — credit a referral bonus
// GET  /api/accounts/{account}/staking         — list positions
// POST /api/accounts/{account}/staking         — open a position
// GET  /api/staking/plans                      — plan catalog
// POST /api/staking/positions/{position}/close — settle a position
// POST /api/payments/confirm                   — apply an external payment

// handleAccount returns the account's balances, resource pools, and
// mining rate. Reading an unknown account creates it.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	acct, err := s.ledger.Ensure(account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	energy, err := s.regen.Available(account, domain.PoolEnergy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	stamina, err := s.regen.Available(account, domain.PoolStamina)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rate := acct.MiningRate
	if acct.Privileged {
		rate = domain.PrivilegedMiningRate()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":     acct.ID,
		"privileged":  acct.Privileged,
		"balances":    acct.Balances,
		"energy":      energy,
		"stamina":     stamina,
		"mining_rate": rate,
		"created_at":  acct.CreatedAt,
	})
}

// handleLedgerHistory returns recent ledger entries, newest first.
// Query: ?limit=N (default 50).
func (s *Server) handleLedgerHistory(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	entries, err := s.ledger.History(account, queryInt(r, "limit", 50))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": account,
		"entries": entries,
	})
}

// handleTap settles one tap.
func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	res, err := s.regen.Tap(chi.URLParam(r, "account"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSpin runs one wheel draw.
func (s *Server) handleSpin(w http.ResponseWriter, r *http.Request) {
	res, err := s.spin.Draw(chi.URLParam(r, "account"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSpinHistory returns recent draws, newest first.
func (s *Server) handleSpinHistory(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	recs, err := s.spin.History(account, queryInt(r, "limit", 50))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": account,
		"spins":   recs,
	})
}

// handleHoldings returns the account's equipment and aggregate rate.
func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	holding, rate, err := s.mining.Holdings(account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	active, err := s.mining.ActiveCounts(account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":     account,
		"equipment":   holding.Counts,
		"active":      active,
		"expirations": holding.Expirations,
		"mining_rate": rate,
		"tiers":       domain.EquipmentTiers(),
	})
}

// handleEquipmentPurchase buys one unit of a tier.
// Body: {"tier": "RTX4070", "currency": "MUSKY"}.
func (s *Server) handleEquipmentPurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier     string          `json:"tier"`
		Currency domain.Currency `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	holding, rate, err := s.mining.Purchase(chi.URLParam(r, "account"), req.Tier, req.Currency)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"equipment":   holding.Counts,
		"mining_rate": rate,
	})
}

// handleAccrue settles SOL mined since the last accrual.
func (s *Server) handleAccrue(w http.ResponseWriter, r *http.Request) {
	credited, err := s.mining.Accrue(chi.URLParam(r, "account"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"credited": credited,
	})
}

// handleStaminaPurchase tops up stamina for Stars.
// Body: {"amount": 2000, "cost": 500}.
func (s *Server) handleStaminaPurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int     `json:"amount"`
		Cost   float64 `json:"cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stamina, err := s.regen.PurchaseStamina(chi.URLParam(r, "account"), req.Amount, req.Cost)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stamina": stamina,
	})
}

// handleReferral credits the account for referring a new player. At most
// one bonus per referee, enforced by the ledger reference.
// Body: {"referee": "12345"}.
func (s *Server) handleReferral(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Referee string `json:"referee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance, err := s.ledger.ReferralCredit(chi.URLParam(r, "account"), req.Referee)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance": balance,
	})
}

// handlePlans returns the staking plan catalog.
func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plans": s.staking.Plans(),
	})
}

// handlePositions lists the account's staking positions, newest first.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	positions, err := s.staking.Positions(account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":   account,
		"positions": positions,
	})
}

// handleStakeOpen opens a staking position.
// Body: {"plan": 2, "principal": 10000}.
func (s *Server) handleStakeOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan      int     `json:"plan"`
		Principal float64 `json:"principal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pos, err := s.staking.Open(chi.URLParam(r, "account"), req.Plan, req.Principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

// handleStakeClose settles a position, maturely or early.
func (s *Server) handleStakeClose(w http.ResponseWriter, r *http.Request) {
	pos, err := s.staking.Close(chi.URLParam(r, "position"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// handlePaymentConfirm applies an externally settled payment to the
// ledger. The provider's charge id is the idempotency reference, so a
// replayed webhook is a no-op.
// Body: {"account": "12345", "currency": "STARS", "amount": 500, "charge_id": "tg_abc"}.
func (s *Server) handlePaymentConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account  string          `json:"account"`
		Currency domain.Currency `json:"currency"`
		Amount   float64         `json:"amount"`
		ChargeID string          `json:"charge_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.ChargeID == "" {
		writeError(w, http.StatusBadRequest, "charge_id is required")
		return
	}

	balance, err := s.ledger.Adjust(req.Account, req.Currency, req.Amount, "payment:"+req.ChargeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": req.Account,
		"balance": balance,
	})
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
