package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/musky-network/muskyd/internal/domain"
)

// ─── Account Operations ─────────────────────────────────────────────────────

// CreateAccount inserts a new account row if none exists. Returns true when
// a row was actually created.
func (db *DB) CreateAccount(a *domain.Account) (bool, error) {
	res, err := db.db.Exec(`
		INSERT OR IGNORE INTO accounts
			(id, privileged, balance_musky, balance_sol, balance_stars,
			 energy, last_energy_reset, stamina, last_stamina_reset,
			 mining_rate, last_accrual, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, boolInt(a.Privileged),
		a.Balance(domain.MUSKY), a.Balance(domain.SOL), a.Balance(domain.STARS),
		a.Energy, fmtTime(a.LastEnergyReset), a.Stamina, fmtTime(a.LastStaminaReset),
		a.MiningRate, fmtTime(a.LastAccrual), fmtTime(a.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("create account: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetAccount loads an account by id. Returns (nil, nil) when absent.
func (db *DB) GetAccount(id string) (*domain.Account, error) {
	row := db.db.QueryRow(`
		SELECT id, privileged, balance_musky, balance_sol, balance_stars,
		       energy, last_energy_reset, stamina, last_stamina_reset,
		       last_tap_time, last_stamina_purchase,
		       mining_rate, last_accrual, created_at
		FROM accounts WHERE id = ?
	`, id)

	var a domain.Account
	var priv int
	var musky, sol, stars float64
	var energyReset, staminaReset, lastAccrual, createdAt string
	var lastTap, lastPurchase sql.NullString
	err := row.Scan(&a.ID, &priv, &musky, &sol, &stars,
		&a.Energy, &energyReset, &a.Stamina, &staminaReset,
		&lastTap, &lastPurchase, &a.MiningRate, &lastAccrual, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	a.Privileged = priv == 1
	a.Balances = map[domain.Currency]float64{
		domain.MUSKY: musky,
		domain.SOL:   sol,
		domain.STARS: stars,
	}
	a.LastEnergyReset = parseTime(energyReset)
	a.LastStaminaReset = parseTime(staminaReset)
	a.LastAccrual = parseTime(lastAccrual)
	a.CreatedAt = parseTime(createdAt)
	if lastTap.Valid {
		a.LastTapTime = parseTime(lastTap.String)
	}
	if lastPurchase.Valid {
		a.LastStaminaPurchase = parseTime(lastPurchase.String)
	}
	return &a, nil
}

// UpdatePool persists a pool's new value and regen checkpoint.
func (db *DB) UpdatePool(account string, pool domain.Pool, value int, checkpoint time.Time) error {
	var stmt string
	if pool == domain.PoolStamina {
		stmt = `UPDATE accounts SET stamina = ?, last_stamina_reset = ? WHERE id = ?`
	} else {
		stmt = `UPDATE accounts SET energy = ?, last_energy_reset = ? WHERE id = ?`
	}
	_, err := db.db.Exec(stmt, value, fmtTime(checkpoint), account)
	return err
}

// SetTapTime records the last accepted tap.
func (db *DB) SetTapTime(account string, t time.Time) error {
	_, err := db.db.Exec(`UPDATE accounts SET last_tap_time = ? WHERE id = ?`, fmtTime(t), account)
	return err
}

// SetStaminaPurchase records the last premium stamina top-up.
func (db *DB) SetStaminaPurchase(account string, t time.Time) error {
	_, err := db.db.Exec(`UPDATE accounts SET last_stamina_purchase = ? WHERE id = ?`, fmtTime(t), account)
	return err
}

// SetMiningRate persists the stored aggregate accrual rate.
func (db *DB) SetMiningRate(account string, rate float64) error {
	_, err := db.db.Exec(`UPDATE accounts SET mining_rate = ? WHERE id = ?`, rate, account)
	return err
}

// SetLastAccrual advances the accrual checkpoint.
func (db *DB) SetLastAccrual(account string, t time.Time) error {
	_, err := db.db.Exec(`UPDATE accounts SET last_accrual = ? WHERE id = ?`, fmtTime(t), account)
	return err
}

// AccountsWithMiningRate returns ids of accounts with a nonzero stored rate,
// for the background accrual sweep.
func (db *DB) AccountsWithMiningRate() ([]string, error) {
	rows, err := db.db.Query(`SELECT id FROM accounts WHERE mining_rate > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
