package database

import (
	"context"
	"database/sql"
	"fmt"

	"clinica/internal/models"
)

// GetSubscriptionByUserID returns the user's subscription record, or
// ErrNotFound when the user never subscribed.
func (db *DB) GetSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	var (
		s             models.Subscription
		preapprovalID sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, status, preapproval_id, created_at, updated_at
		FROM subscriptions WHERE user_id = ?`,
		userID,
	).Scan(&s.ID, &s.UserID, &s.Status, &preapprovalID, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	s.PreapprovalID = preapprovalID.String
	return &s, nil
}

// UpsertSubscription creates or replaces the user's subscription record.
// The unique user_id constraint keeps at most one row per user.
func (db *DB) UpsertSubscription(ctx context.Context, s *models.Subscription) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, status, preapproval_id)
		VALUES (?, ?, NULLIF(?, ''))
		ON CONFLICT(user_id) DO UPDATE SET
			status = excluded.status,
			preapproval_id = excluded.preapproval_id,
			updated_at = CURRENT_TIMESTAMP`,
		s.UserID, s.Status, s.PreapprovalID,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// UpdateSubscriptionStatus sets the local status for a user, used by the
// reconciliation/admin paths.
func (db *DB) UpdateSubscriptionStatus(ctx context.Context, userID string, status models.SubscriptionStatus) error {
	res, err := db.ExecContext(ctx, `
		UPDATE subscriptions SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?`,
		status, userID,
	)
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
