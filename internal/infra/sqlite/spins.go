package sqlite

import (
	"fmt"

	"github.com/musky-network/muskyd/internal/domain"
)

// ─── Spin Outcome Operations ────────────────────────────────────────────────

// InsertSpinOutcome appends one draw audit record. Records are never
// updated or deleted.
func (db *DB) InsertSpinOutcome(rec domain.SpinOutcomeRecord) error {
	_, err := db.db.Exec(`
		INSERT INTO spin_outcomes (id, account, kind, amount, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.Account, string(rec.Kind), rec.Amount, fmtTime(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("insert spin outcome: %w", err)
	}
	return nil
}

// RecentSpinOutcomes returns up to limit draws for an account, newest first.
func (db *DB) RecentSpinOutcomes(account string, limit int) ([]domain.SpinOutcomeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.db.Query(`
		SELECT id, account, kind, amount, timestamp
		FROM spin_outcomes WHERE account = ? ORDER BY id DESC LIMIT ?
	`, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SpinOutcomeRecord
	for rows.Next() {
		var r domain.SpinOutcomeRecord
		var kind, ts string
		if err := rows.Scan(&r.ID, &r.Account, &kind, &r.Amount, &ts); err != nil {
			return nil, err
		}
		r.Kind = domain.PrizeKind(kind)
		r.Timestamp = parseTime(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}
