package sqlite

import (
	"fmt"

	"github.com/musky-network/muskyd/internal/domain"
)

// ─── Ledger Operations ──────────────────────────────────────────────────────

// ReferenceExists reports whether an entry with the given idempotency
// reference was already applied.
func (db *DB) ReferenceExists(reference string) (bool, error) {
	var n int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE reference = ?`, reference).Scan(&n)
	return n > 0, err
}

// AppendEntry writes one ledger entry and the resulting balance in a single
// transaction. A failed append leaves neither the entry nor the balance
// behind.
func (db *DB) AppendEntry(e domain.LedgerEntry) error {
	col, err := balanceColumn(e.Currency)
	if err != nil {
		return err
	}

	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO ledger_entries (id, account, currency, delta, reference, reason, balance, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Account, string(e.Currency), e.Delta, e.Reference, e.Reason, e.Balance, fmtTime(e.Timestamp)); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	stmt := fmt.Sprintf(`UPDATE accounts SET %s = ? WHERE id = ?`, col)
	if _, err := tx.Exec(stmt, e.Balance, e.Account); err != nil {
		return fmt.Errorf("apply balance: %w", err)
	}
	return tx.Commit()
}

// RecentEntries returns up to limit entries for an account, newest first.
func (db *DB) RecentEntries(account string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.db.Query(`
		SELECT id, account, currency, delta, reference, reason, balance, timestamp
		FROM ledger_entries WHERE account = ?
		ORDER BY id DESC LIMIT ?
	`, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var cur, ts string
		if err := rows.Scan(&e.ID, &e.Account, &cur, &e.Delta, &e.Reference, &e.Reason, &e.Balance, &ts); err != nil {
			return nil, err
		}
		e.Currency = domain.Currency(cur)
		e.Timestamp = parseTime(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func balanceColumn(c domain.Currency) (string, error) {
	switch c {
	case domain.MUSKY:
		return "balance_musky", nil
	case domain.SOL:
		return "balance_sol", nil
	case domain.STARS:
		return "balance_stars", nil
	}
	return "", fmt.Errorf("%w: currency %q", domain.ErrValidation, c)
}
