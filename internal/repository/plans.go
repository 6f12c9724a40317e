package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/animatepdf/animatepdf/internal/domain"
)

const planColumns = `id, name, display_name_en, display_name_tr, price_cents,
	monthly_credit_limit, features, metadata, is_active, sort_order, created_at, updated_at`

// scanPlan scans a single plan row. The row must select planColumns in order.
func scanPlan(row interface{ Scan(...any) error }) (domain.SubscriptionPlan, error) {
	var (
		p        domain.SubscriptionPlan
		features pq.StringArray
		metadata pqtype.NullRawMessage
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.DisplayNameEN,
		&p.DisplayNameTR,
		&p.PriceCents,
		&p.MonthlyCreditLimit,
		&features,
		&metadata,
		&p.IsActive,
		&p.SortOrder,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.SubscriptionPlan{}, err
	}
	p.Features = []string(features)
	if metadata.Valid {
		p.Metadata = json.RawMessage(metadata.RawMessage)
	}
	return p, nil
}

// ListActivePlans returns all active plans ordered for display.
func (s *Store) ListActivePlans(ctx context.Context) ([]domain.SubscriptionPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+planColumns+`
		FROM subscription_plans
		WHERE is_active = true
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// GetPlanByName returns the plan with the given unique name.
// Returns sql.ErrNoRows if no such plan exists.
func (s *Store) GetPlanByName(ctx context.Context, name string) (domain.SubscriptionPlan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+planColumns+`
		FROM subscription_plans
		WHERE name = $1`, name)
	return scanPlan(row)
}

// GetPlanByID returns the plan with the given ID.
// Returns sql.ErrNoRows if no such plan exists.
func (s *Store) GetPlanByID(ctx context.Context, id uuid.UUID) (domain.SubscriptionPlan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+planColumns+`
		FROM subscription_plans
		WHERE id = $1`, id)
	return scanPlan(row)
}

// UpsertPlan creates or updates a plan by its unique name and returns the
// stored row.
func (s *Store) UpsertPlan(ctx context.Context, params domain.PlanParams) (domain.SubscriptionPlan, error) {
	metadata := pqtype.NullRawMessage{}
	if len(params.Metadata) > 0 {
		metadata = pqtype.NullRawMessage{RawMessage: params.Metadata, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO subscription_plans (
			id, name, display_name_en, display_name_tr, price_cents,
			monthly_credit_limit, features, metadata, is_active, sort_order
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name) DO UPDATE SET
			display_name_en = EXCLUDED.display_name_en,
			display_name_tr = EXCLUDED.display_name_tr,
			price_cents = EXCLUDED.price_cents,
			monthly_credit_limit = EXCLUDED.monthly_credit_limit,
			features = EXCLUDED.features,
			metadata = EXCLUDED.metadata,
			is_active = EXCLUDED.is_active,
			sort_order = EXCLUDED.sort_order,
			updated_at = now()
		RETURNING `+planColumns,
		uuid.New(),
		params.Name,
		params.DisplayNameEN,
		params.DisplayNameTR,
		params.PriceCents,
		params.MonthlyCreditLimit,
		pq.Array(params.Features),
		metadata,
		params.IsActive,
		params.SortOrder,
	)
	return scanPlan(row)
}

// DeactivatePlan marks a plan inactive so it no longer appears in the catalog.
// The row is kept because subscriptions may still reference it.
// Returns sql.ErrNoRows if no such plan exists.
func (s *Store) DeactivatePlan(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscription_plans
		SET is_active = false, updated_at = now()
		WHERE name = $1`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
