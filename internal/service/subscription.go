// Package service contains the business logic layer.
//
// This file implements the subscription service: it maintains the
// user_subscriptions table from billing webhook events and expires lapsed
// periods for the background worker.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/repository"
)

// =============================================================================
// Interface Definitions
// =============================================================================

// SubscriptionStore is the subset of the repository the subscription service
// uses.
type SubscriptionStore interface {
	GetPlanByName(ctx context.Context, name string) (domain.SubscriptionPlan, error)
	UpsertSubscription(ctx context.Context, params repository.UpsertSubscriptionParams) (domain.UserSubscription, error)
	UpdateSubscriptionStatus(ctx context.Context, stripeSubscriptionID string, status domain.SubscriptionStatus) error
	ListSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]domain.UserSubscription, error)
	ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

// ApplySubscriptionParams carries a subscription state change from the
// billing provider.
type ApplySubscriptionParams struct {
	UserID               uuid.UUID
	PlanName             string
	Status               domain.SubscriptionStatus
	PeriodStart          time.Time
	PeriodEnd            time.Time
	StripeSubscriptionID string
}

// SubscriptionService maintains user subscriptions.
type SubscriptionService interface {
	// Apply upserts the subscription described by a billing event.
	// Returns domain.ENOTFOUND if the plan name is unknown.
	Apply(ctx context.Context, params ApplySubscriptionParams) (domain.UserSubscription, error)

	// SetStatus updates the status of the subscription with the given Stripe
	// subscription ID. Used for cancellation and payment-failure events.
	SetStatus(ctx context.Context, stripeSubscriptionID string, status domain.SubscriptionStatus) error

	// ListByUser returns a user's subscription history, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.UserSubscription, error)

	// ExpireLapsed marks subscriptions past their period end as expired.
	// Returns the number of subscriptions expired.
	ExpireLapsed(ctx context.Context) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type subscriptionService struct {
	store  SubscriptionStore
	logger *slog.Logger
	now    func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(store SubscriptionStore, logger *slog.Logger) SubscriptionService {
	return &subscriptionService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Apply upserts the subscription described by a billing event.
func (s *subscriptionService) Apply(ctx context.Context, params ApplySubscriptionParams) (domain.UserSubscription, error) {
	const op = "subscription.apply"

	if params.UserID == uuid.Nil {
		return domain.UserSubscription{}, domain.Invalid(op, "user_id is required")
	}
	if params.StripeSubscriptionID == "" {
		return domain.UserSubscription{}, domain.Invalid(op, "stripe subscription id is required")
	}
	if !params.PeriodEnd.After(params.PeriodStart) {
		return domain.UserSubscription{}, domain.Invalid(op, "period end must be after period start")
	}

	plan, err := s.store.GetPlanByName(ctx, params.PlanName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserSubscription{}, domain.NotFound(op, "plan", params.PlanName)
		}
		// A failed lookup is not "unknown plan"; surface it.
		return domain.UserSubscription{}, domain.Unavailable(err, op, "failed to read plan")
	}

	sub, err := s.store.UpsertSubscription(ctx, repository.UpsertSubscriptionParams{
		UserID:               params.UserID,
		PlanID:               plan.ID,
		Status:               params.Status,
		PeriodStart:          params.PeriodStart,
		PeriodEnd:            params.PeriodEnd,
		StripeSubscriptionID: params.StripeSubscriptionID,
	})
	if err != nil {
		return domain.UserSubscription{}, domain.Unavailable(err, op, "failed to store subscription")
	}

	s.logger.Info("subscription applied",
		"user_id", params.UserID,
		"plan", plan.Name,
		"status", params.Status,
		"period_end", params.PeriodEnd,
	)

	return sub, nil
}

// SetStatus updates the status of a subscription by Stripe subscription ID.
func (s *subscriptionService) SetStatus(ctx context.Context, stripeSubscriptionID string, status domain.SubscriptionStatus) error {
	const op = "subscription.set_status"

	if stripeSubscriptionID == "" {
		return domain.Invalid(op, "stripe subscription id is required")
	}

	if err := s.store.UpdateSubscriptionStatus(ctx, stripeSubscriptionID, status); err != nil {
		return domain.Unavailable(err, op, "failed to update subscription status")
	}

	s.logger.Info("subscription status updated", "stripe_subscription_id", stripeSubscriptionID, "status", status)
	return nil
}

// ListByUser returns a user's subscription history.
func (s *subscriptionService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.UserSubscription, error) {
	const op = "subscription.list"

	if userID == uuid.Nil {
		return nil, domain.Invalid(op, "user_id is required")
	}

	subs, err := s.store.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, domain.Unavailable(err, op, "failed to list subscriptions")
	}
	return subs, nil
}

// ExpireLapsed marks subscriptions past their period end as expired.
func (s *subscriptionService) ExpireLapsed(ctx context.Context) (int64, error) {
	const op = "subscription.expire"

	count, err := s.store.ExpireLapsedSubscriptions(ctx, s.now())
	if err != nil {
		return 0, domain.Unavailable(err, op, "failed to expire subscriptions")
	}
	if count > 0 {
		s.logger.Info("expired lapsed subscriptions", "count", count)
	}
	return count, nil
}
