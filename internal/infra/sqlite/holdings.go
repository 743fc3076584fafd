package sqlite

import (
	"time"

	"github.com/musky-network/muskyd/internal/domain"
)

// ─── Equipment Operations ───────────────────────────────────────────────────

// InsertUnit records one purchased equipment unit with its expiration.
func (db *DB) InsertUnit(account, tier string, expiresAt time.Time) error {
	_, err := db.db.Exec(`
		INSERT INTO equipment_units (account, tier, expires_at) VALUES (?, ?, ?)
	`, account, tier, fmtTime(expiresAt))
	return err
}

// HoldingFor returns the full holding for an account: per-tier counts and
// every unit's expiration, expired units included.
func (db *DB) HoldingFor(account string) (domain.Holding, error) {
	h := domain.Holding{
		Counts:      make(map[string]int),
		Expirations: make(map[string][]time.Time),
	}
	rows, err := db.db.Query(`
		SELECT tier, expires_at FROM equipment_units WHERE account = ? ORDER BY id
	`, account)
	if err != nil {
		return h, err
	}
	defer rows.Close()

	for rows.Next() {
		var tier, exp string
		if err := rows.Scan(&tier, &exp); err != nil {
			return h, err
		}
		h.Counts[tier]++
		h.Expirations[tier] = append(h.Expirations[tier], parseTime(exp))
	}
	return h, rows.Err()
}

// ActiveCounts returns per-tier counts of units that expire after now.
func (db *DB) ActiveCounts(account string, now time.Time) (map[string]int, error) {
	counts := make(map[string]int)
	rows, err := db.db.Query(`
		SELECT tier, COUNT(*) FROM equipment_units
		WHERE account = ? AND expires_at > ?
		GROUP BY tier
	`, account, fmtTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		counts[tier] = n
	}
	return counts, rows.Err()
}

// AccountsWithExpiredUnits lists accounts holding at least one expired unit.
func (db *DB) AccountsWithExpiredUnits(now time.Time) ([]string, error) {
	rows, err := db.db.Query(`
		SELECT DISTINCT account FROM equipment_units WHERE expires_at <= ?
	`, fmtTime(now))
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

// DeleteExpiredUnits prunes units past their expiration. Safe to invoke
// repeatedly; already-pruned units simply no longer match.
func (db *DB) DeleteExpiredUnits(now time.Time) (int64, error) {
	res, err := db.db.Exec(`DELETE FROM equipment_units WHERE expires_at <= ?`, fmtTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
