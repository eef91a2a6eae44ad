package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"texas-tradem/internal/domain"

	"github.com/rs/zerolog"
)

// SubscriptionRepository persists the single subscription record that the
// session gate consults at startup. One row, replaced on each activation.
type SubscriptionRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSubscriptionRepository(db *sql.DB, logger zerolog.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, logger: logger}
}

// Get returns the stored subscription, or nil when none has been recorded.
func (r *SubscriptionRepository) Get(ctx context.Context) (*domain.Subscription, error) {
	var expiry time.Time
	err := r.db.QueryRowContext(ctx, `SELECT expiry FROM subscriptions WHERE id = 1`).Scan(&expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	return &domain.Subscription{Expiry: expiry}, nil
}

func (r *SubscriptionRepository) Put(ctx context.Context, sub domain.Subscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, expiry, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`, sub.Expiry, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store subscription: %w", err)
	}

	r.logger.Info().Time("expiry", sub.Expiry).Msg("subscription stored")
	return nil
}
