// Package sqlite is the durable store for the economy engine: accounts,
// equipment units, staking positions, and the two append-only logs
// (ledger entries, spin outcomes).
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the engine database inside dir.
func Open(dir string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		filepath.Join(dir, "musky.db"))
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Serialized access keeps the modernc driver happy under concurrency;
	// per-account locking above this layer does the real serialization.
	handle.SetMaxOpenConns(1)

	db := &DB{db: handle}
	if err := db.migrate(); err != nil {
		handle.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error { return db.db.Close() }

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id                    TEXT PRIMARY KEY,
			privileged            INTEGER NOT NULL DEFAULT 0,
			balance_musky         REAL NOT NULL DEFAULT 0,
			balance_sol           REAL NOT NULL DEFAULT 0,
			balance_stars         REAL NOT NULL DEFAULT 0,
			energy                INTEGER NOT NULL,
			last_energy_reset     TEXT NOT NULL,
			stamina               INTEGER NOT NULL,
			last_stamina_reset    TEXT NOT NULL,
			last_tap_time         TEXT,
			last_stamina_purchase TEXT,
			mining_rate           REAL NOT NULL DEFAULT 0,
			last_accrual          TEXT NOT NULL,
			created_at            TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		`CREATE TABLE IF NOT EXISTS equipment_units (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			account    TEXT NOT NULL,
			tier       TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_units_account ON equipment_units(account)`,
		`CREATE INDEX IF NOT EXISTS idx_units_expiry ON equipment_units(expires_at)`,

		`CREATE TABLE IF NOT EXISTS positions (
			id        TEXT PRIMARY KEY,
			account   TEXT NOT NULL,
			plan_id   INTEGER NOT NULL,
			principal REAL NOT NULL,
			start_at  TEXT NOT NULL,
			end_at    TEXT NOT NULL,
			state     TEXT NOT NULL DEFAULT 'ACTIVE',
			closed_at TEXT,
			returned  REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_account ON positions(account, state)`,

		// Append-only: reference is the idempotency key.
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id        TEXT PRIMARY KEY,
			account   TEXT NOT NULL,
			currency  TEXT NOT NULL,
			delta     REAL NOT NULL,
			reference TEXT NOT NULL UNIQUE,
			reason    TEXT NOT NULL DEFAULT '',
			balance   REAL NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_entries(account, timestamp)`,

		// Append-only audit of wheel draws.
		`CREATE TABLE IF NOT EXISTS spin_outcomes (
			id        TEXT PRIMARY KEY,
			account   TEXT NOT NULL,
			kind      TEXT NOT NULL,
			amount    REAL NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spins_account ON spin_outcomes(account, timestamp)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Time Helpers ───────────────────────────────────────────────────────────

const timeLayout = time.RFC3339Nano

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
