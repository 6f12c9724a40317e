package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/animatepdf/animatepdf/internal/domain"
)

const subscriptionColumns = `id, user_id, plan_id, status, period_start, period_end,
	stripe_subscription_id, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (domain.UserSubscription, error) {
	var sub domain.UserSubscription
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&sub.Status,
		&sub.PeriodStart,
		&sub.PeriodEnd,
		&sub.StripeSubscriptionID,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	return sub, err
}

// GetActiveSubscription returns the user's entitling subscription at the given
// instant. Returns sql.ErrNoRows when the user has none, which callers treat
// as the implicit free plan.
func (s *Store) GetActiveSubscription(ctx context.Context, userID uuid.UUID, now time.Time) (domain.UserSubscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM user_subscriptions
		WHERE user_id = $1
		  AND status IN ('active', 'past_due')
		  AND period_start <= $2
		  AND period_end > $2
		ORDER BY period_end DESC
		LIMIT 1`, userID, now)
	return scanSubscription(row)
}

// ListSubscriptionsByUser returns all of a user's subscription rows, newest
// first. Used by the admin surface.
func (s *Store) ListSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]domain.UserSubscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM user_subscriptions
		WHERE user_id = $1
		ORDER BY period_end DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.UserSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpsertSubscriptionParams contains the fields written by the billing webhook.
type UpsertSubscriptionParams struct {
	UserID               uuid.UUID
	PlanID               uuid.UUID
	Status               domain.SubscriptionStatus
	PeriodStart          time.Time
	PeriodEnd            time.Time
	StripeSubscriptionID string
}

// UpsertSubscription creates or updates a subscription keyed by its Stripe
// subscription ID and returns the stored row.
func (s *Store) UpsertSubscription(ctx context.Context, params UpsertSubscriptionParams) (domain.UserSubscription, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO user_subscriptions (
			id, user_id, plan_id, status, period_start, period_end, stripe_subscription_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			updated_at = now()
		RETURNING `+subscriptionColumns,
		uuid.New(),
		params.UserID,
		params.PlanID,
		params.Status,
		params.PeriodStart,
		params.PeriodEnd,
		params.StripeSubscriptionID,
	)
	return scanSubscription(row)
}

// UpdateSubscriptionStatus sets the status of the subscription with the given
// Stripe subscription ID.
func (s *Store) UpdateSubscriptionStatus(ctx context.Context, stripeSubscriptionID string, status domain.SubscriptionStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_subscriptions
		SET status = $2, updated_at = now()
		WHERE stripe_subscription_id = $1`, stripeSubscriptionID, status)
	return err
}

// ExpireLapsedSubscriptions marks subscriptions whose period has ended as
// expired, and returns how many rows changed. Run periodically by the worker
// so the limit policy falls back to the free plan without waiting for a
// billing webhook.
func (s *Store) ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_subscriptions
		SET status = 'expired', updated_at = now()
		WHERE status IN ('active', 'past_due')
		  AND period_end <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
