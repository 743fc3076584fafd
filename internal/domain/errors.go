package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Every business-rule
// rejection maps to exactly one of these; no failure path leaves a partial
// debit or credit behind.

var (
	// Validation
	ErrValidation  = errors.New("invalid input")
	ErrUnknownTier = errors.New("unknown equipment tier")
	ErrUnknownPlan = errors.New("unknown staking plan")

	// Ledger
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Resource pools
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrTapTooFast           = errors.New("tapping too fast")
	ErrPurchaseCooldown     = errors.New("stamina purchase cooldown active")

	// Equipment
	ErrPrerequisiteNotMet = errors.New("prerequisite tier not owned")
	ErrCapacityExceeded   = errors.New("equipment capacity exceeded")

	// Staking
	ErrPositionNotFound      = errors.New("staking position not found")
	ErrPositionAlreadyClosed = errors.New("staking position already closed")
)
