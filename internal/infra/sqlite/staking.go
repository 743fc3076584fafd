package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/musky-network/muskyd/internal/domain"
)

// ─── Staking Position Operations ────────────────────────────────────────────

// InsertPosition stores a new Active position.
func (db *DB) InsertPosition(p domain.StakingPosition) error {
	_, err := db.db.Exec(`
		INSERT INTO positions (id, account, plan_id, principal, start_at, end_at, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Account, p.PlanID, p.Principal, fmtTime(p.StartAt), fmtTime(p.EndAt), string(p.State))
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetPosition loads one position by id. Returns (nil, nil) when absent.
func (db *DB) GetPosition(id string) (*domain.StakingPosition, error) {
	row := db.db.QueryRow(`
		SELECT id, account, plan_id, principal, start_at, end_at, state, closed_at, returned
		FROM positions WHERE id = ?
	`, id)
	p, err := scanPosition(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	return p, nil
}

// ListPositions returns an account's positions, newest first.
func (db *DB) ListPositions(account string) ([]domain.StakingPosition, error) {
	rows, err := db.db.Query(`
		SELECT id, account, plan_id, principal, start_at, end_at, state, closed_at, returned
		FROM positions WHERE account = ? ORDER BY id DESC
	`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StakingPosition
	for rows.Next() {
		p, err := scanPosition(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ClosePosition transitions a position out of Active. The WHERE clause on
// state makes the transition a compare-and-set: of two racing closers,
// exactly one observes an affected row.
func (db *DB) ClosePosition(id string, state domain.PositionState, closedAt time.Time, returned float64) (bool, error) {
	res, err := db.db.Exec(`
		UPDATE positions SET state = ?, closed_at = ?, returned = ?
		WHERE id = ? AND state = ?
	`, string(state), fmtTime(closedAt), returned, id, string(domain.PositionActive))
	if err != nil {
		return false, fmt.Errorf("close position: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func scanPosition(scan func(dest ...any) error) (*domain.StakingPosition, error) {
	var p domain.StakingPosition
	var state, startAt, endAt string
	var closedAt sql.NullString
	if err := scan(&p.ID, &p.Account, &p.PlanID, &p.Principal, &startAt, &endAt, &state, &closedAt, &p.Returned); err != nil {
		return nil, err
	}
	p.State = domain.PositionState(state)
	p.StartAt = parseTime(startAt)
	p.EndAt = parseTime(endAt)
	if closedAt.Valid {
		p.ClosedAt = parseTime(closedAt.String)
	}
	return &p, nil
}
