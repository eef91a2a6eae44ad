package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"texas-tradem/internal/domain"

	"github.com/rs/zerolog"
)

// BalanceRepository persists the per-player bankroll mapping. Saves are full
// overwrites; players absent from the stored mapping keep their compiled-in
// starting balance (applied by the caller).
type BalanceRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBalanceRepository(db *sql.DB, logger zerolog.Logger) *BalanceRepository {
	return &BalanceRepository{db: db, logger: logger}
}

func (r *BalanceRepository) Load(ctx context.Context) (map[domain.PlayerID]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT player_id, balance FROM balances`)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[domain.PlayerID]int)
	for rows.Next() {
		var id string
		var balance int
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		balances[domain.PlayerID(id)] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read balances: %w", err)
	}

	r.logger.Debug().Int("count", len(balances)).Msg("balances loaded")
	return balances, nil
}

func (r *BalanceRepository) Save(ctx context.Context, balances map[domain.PlayerID]int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for id, balance := range balances {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO balances (player_id, balance, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT (player_id) DO UPDATE SET
				balance = excluded.balance,
				updated_at = excluded.updated_at
		`, string(id), balance, now)
		if err != nil {
			return fmt.Errorf("failed to upsert balance for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit balances: %w", err)
	}

	r.logger.Debug().Int("count", len(balances)).Msg("balances saved")
	return nil
}
