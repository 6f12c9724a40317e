// Package service contains the business logic layer.
//
// This file implements the plan catalog service. Plans change rarely, so the
// catalog is cached in process and invalidated on administrative updates.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/animatepdf/animatepdf/internal/domain"
)

// =============================================================================
// Interface Definitions
// =============================================================================

// PlanStore is the subset of the repository the plan service uses.
type PlanStore interface {
	ListActivePlans(ctx context.Context) ([]domain.SubscriptionPlan, error)
	GetPlanByName(ctx context.Context, name string) (domain.SubscriptionPlan, error)
	UpsertPlan(ctx context.Context, params domain.PlanParams) (domain.SubscriptionPlan, error)
	DeactivatePlan(ctx context.Context, name string) error
}

// PlanService defines operations on the subscription plan catalog.
type PlanService interface {
	// ListActivePlans returns active plans ordered for display.
	ListActivePlans(ctx context.Context) ([]domain.SubscriptionPlan, error)

	// GetPlanByName returns a plan by its unique name.
	// Returns domain.ENOTFOUND if the plan does not exist.
	GetPlanByName(ctx context.Context, name string) (domain.SubscriptionPlan, error)

	// UpsertPlan creates or updates a plan. Administrative only.
	// Returns domain.EINVALID for validation errors.
	UpsertPlan(ctx context.Context, params domain.PlanParams) (domain.SubscriptionPlan, error)

	// DeactivatePlan hides a plan from the catalog. The free plan cannot be
	// deactivated; it is the fallback entitlement.
	DeactivatePlan(ctx context.Context, name string) error
}

// =============================================================================
// Implementation
// =============================================================================

type planService struct {
	store  PlanStore
	logger *slog.Logger

	mu     sync.RWMutex
	cached []domain.SubscriptionPlan // nil until first successful list
}

// NewPlanService creates a new PlanService.
func NewPlanService(store PlanStore, logger *slog.Logger) PlanService {
	return &planService{
		store:  store,
		logger: logger,
	}
}

// ListActivePlans returns the catalog, serving from cache when warm.
func (s *planService) ListActivePlans(ctx context.Context) ([]domain.SubscriptionPlan, error) {
	const op = "plan.list"

	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	plans, err := s.store.ListActivePlans(ctx)
	if err != nil {
		return nil, domain.Unavailable(err, op, "failed to list plans")
	}
	if len(plans) == 0 {
		// An empty catalog means entitlement cannot be determined for anyone.
		return nil, domain.Config(nil, op, "plan catalog is empty")
	}

	s.mu.Lock()
	s.cached = plans
	s.mu.Unlock()

	return plans, nil
}

// GetPlanByName returns a plan by its unique name.
func (s *planService) GetPlanByName(ctx context.Context, name string) (domain.SubscriptionPlan, error) {
	const op = "plan.get"

	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return domain.SubscriptionPlan{}, domain.Invalid(op, "plan name is required")
	}

	plan, err := s.store.GetPlanByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SubscriptionPlan{}, domain.NotFound(op, "plan", name)
		}
		return domain.SubscriptionPlan{}, domain.Unavailable(err, op, "failed to read plan")
	}
	return plan, nil
}

// UpsertPlan creates or updates a plan and invalidates the cache.
func (s *planService) UpsertPlan(ctx context.Context, params domain.PlanParams) (domain.SubscriptionPlan, error) {
	const op = "plan.upsert"

	if err := validatePlanParams(op, params); err != nil {
		return domain.SubscriptionPlan{}, err
	}
	params.Name = strings.TrimSpace(strings.ToLower(params.Name))

	plan, err := s.store.UpsertPlan(ctx, params)
	if err != nil {
		return domain.SubscriptionPlan{}, domain.Unavailable(err, op, "failed to store plan")
	}

	s.invalidate()
	s.logger.Info("plan upserted", "plan", plan.Name, "limit", plan.MonthlyCreditLimit, "active", plan.IsActive)

	return plan, nil
}

// DeactivatePlan hides a plan from the catalog.
func (s *planService) DeactivatePlan(ctx context.Context, name string) error {
	const op = "plan.deactivate"

	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return domain.Invalid(op, "plan name is required")
	}
	if name == domain.PlanFree {
		return domain.Invalid(op, "the free plan cannot be deactivated")
	}

	if err := s.store.DeactivatePlan(ctx, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "plan", name)
		}
		return domain.Unavailable(err, op, "failed to deactivate plan")
	}

	s.invalidate()
	s.logger.Info("plan deactivated", "plan", name)
	return nil
}

func (s *planService) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func validatePlanParams(op string, params domain.PlanParams) error {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return domain.NewValidationError(op, "name", "name is required")
	}
	if strings.ContainsAny(name, " \t\n") {
		return domain.NewValidationError(op, "name", "name must not contain whitespace")
	}
	var ve *domain.ValidationError
	if params.PriceCents < 0 {
		ve = domain.NewValidationError(op, "price_cents", "price must not be negative")
	}
	if params.MonthlyCreditLimit < 0 {
		if ve == nil {
			ve = domain.NewValidationError(op, "monthly_credit_limit", "credit limit must not be negative")
		} else {
			ve.Fields["monthly_credit_limit"] = "credit limit must not be negative"
		}
	}
	if ve != nil {
		return ve
	}
	return nil
}
