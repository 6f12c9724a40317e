// Package service contains the business logic layer.
//
// This file implements the credit service: the monthly limit policy read path
// and the usage recorder write path. PDF analyses and animation generations
// share one pooled credit budget per calendar month.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/i18n"
	"github.com/animatepdf/animatepdf/internal/metrics"
)

// =============================================================================
// Interface Definitions
// =============================================================================

// CreditStore is the subset of the repository the credit service reads and
// writes.
type CreditStore interface {
	GetPlanByName(ctx context.Context, name string) (domain.SubscriptionPlan, error)
	GetPlanByID(ctx context.Context, id uuid.UUID) (domain.SubscriptionPlan, error)
	GetActiveSubscription(ctx context.Context, userID uuid.UUID, now time.Time) (domain.UserSubscription, error)
	GetUsage(ctx context.Context, userID uuid.UUID, monthYear string) (domain.UserUsage, error)
	IncrementUsage(ctx context.Context, userID uuid.UUID, monthYear string, kind domain.UsageKind) (domain.UserUsage, error)
	ResetUsage(ctx context.Context, userID uuid.UUID, monthYear string) error
}

// UsageAlerter enqueues a usage threshold notification. Implemented by the
// worker's enqueuer; a nil alerter disables notifications.
type UsageAlerter interface {
	EnqueueUsageAlert(ctx context.Context, params domain.UsageAlertParams) error
}

// RecordUsageParams contains the parameters for recording one unit of work.
// Email and Lang are optional; when present they let the recorder notify the
// user as thresholds are crossed.
type RecordUsageParams struct {
	UserID uuid.UUID
	Kind   domain.UsageKind
	Email  string
	Lang   string
}

// CreditService defines the entitlement operations exposed to the HTTP layer.
type CreditService interface {
	// CheckLimit decides whether one more unit of paid work may be performed
	// this month. Pure read; no side effects. The message on a denied result
	// is localized for lang.
	// Returns domain.ECONFIG if the plan catalog cannot be resolved and
	// domain.EUNAVAILABLE if the usage read fails (the check fails closed).
	CheckLimit(ctx context.Context, userID uuid.UUID, lang string) (domain.CreditStanding, error)

	// RecordUsage durably records one completed unit of work, creating the
	// month's ledger row if needed. The increment is atomic; concurrent calls
	// never lose updates. Callers invoke this only after the work succeeded,
	// and treat failures as non-fatal.
	RecordUsage(ctx context.Context, params RecordUsageParams) (domain.UserUsage, error)

	// ResolveEntitlement returns the user's plan: the active subscription's
	// plan, or the free plan when no subscription exists. Lookup failures are
	// errors, never a silent fallback.
	ResolveEntitlement(ctx context.Context, userID uuid.UUID) (domain.Entitlement, error)

	// CurrentUsage returns the current month's ledger row. A missing row is
	// returned as zero counters, not an error.
	CurrentUsage(ctx context.Context, userID uuid.UUID) (domain.UserUsage, error)

	// ResetUsage zeroes the current month's counters. Administrative only.
	ResetUsage(ctx context.Context, userID uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type creditService struct {
	store   CreditStore
	alerter UsageAlerter
	logger  *slog.Logger
	now     func() time.Time
}

// NewCreditService creates a new CreditService. alerter may be nil to disable
// usage notifications.
func NewCreditService(store CreditStore, alerter UsageAlerter, logger *slog.Logger) CreditService {
	return &creditService{
		store:   store,
		alerter: alerter,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckLimit decides whether one more unit of paid work may be performed.
func (s *creditService) CheckLimit(ctx context.Context, userID uuid.UUID, lang string) (domain.CreditStanding, error) {
	const op = "credit.check"

	if userID == uuid.Nil {
		return domain.CreditStanding{}, domain.Invalid(op, "user_id is required")
	}

	ent, err := s.ResolveEntitlement(ctx, userID)
	if err != nil {
		return domain.CreditStanding{}, err
	}

	monthYear := domain.MonthKey(s.now())
	usage, err := s.store.GetUsage(ctx, userID, monthYear)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			// A usage-read failure must never read as "fresh month, full
			// credits". Fail closed with a retryable error.
			return domain.CreditStanding{}, domain.Unavailable(err, op, "failed to read usage ledger")
		}
		usage = domain.UserUsage{UserID: userID, MonthYear: monthYear}
	}

	standing := domain.NewCreditStanding(&usage, &ent.Plan)
	if !standing.CanProcess {
		standing.Message = i18n.LimitExceeded(lang, standing.CurrentUsage, standing.Limit)
		metrics.CreditChecksDenied.Inc()
		s.logger.Info("credit limit reached",
			"user_id", userID,
			"plan", ent.Plan.Name,
			"used", standing.CurrentUsage,
			"limit", standing.Limit,
		)
	}
	metrics.CreditChecksTotal.Inc()

	return standing, nil
}

// RecordUsage durably records one completed unit of work.
func (s *creditService) RecordUsage(ctx context.Context, params RecordUsageParams) (domain.UserUsage, error) {
	const op = "credit.record"

	if params.UserID == uuid.Nil {
		return domain.UserUsage{}, domain.Invalid(op, "user_id is required")
	}
	if !params.Kind.Valid() {
		return domain.UserUsage{}, domain.Invalid(op, "kind must be \"pdf\" or \"animation\"")
	}

	monthYear := domain.MonthKey(s.now())
	usage, err := s.store.IncrementUsage(ctx, params.UserID, monthYear, params.Kind)
	if err != nil {
		return domain.UserUsage{}, domain.Unavailable(err, op, "failed to record usage")
	}

	metrics.UsageRecorded.WithLabelValues(string(params.Kind)).Inc()
	s.logger.Info("usage recorded",
		"user_id", params.UserID,
		"kind", params.Kind,
		"month", monthYear,
		"total", usage.TotalCredits(),
	)

	s.maybeAlert(ctx, params, usage)

	return usage, nil
}

// maybeAlert enqueues a usage notification when the increment crossed an
// alert threshold. Alert failures are logged, never surfaced: the work unit
// is already recorded.
func (s *creditService) maybeAlert(ctx context.Context, params RecordUsageParams, usage domain.UserUsage) {
	if s.alerter == nil || params.Email == "" {
		return
	}

	ent, err := s.ResolveEntitlement(ctx, params.UserID)
	if err != nil {
		s.logger.Warn("skipping usage alert, entitlement unresolved", "user_id", params.UserID, "error", err)
		return
	}

	after := usage.TotalCredits()
	threshold := domain.CrossedThreshold(after-1, after, ent.Plan.CreditLimit())
	if threshold == 0 {
		return
	}

	err = s.alerter.EnqueueUsageAlert(ctx, domain.UsageAlertParams{
		UserID:    params.UserID,
		Email:     params.Email,
		Lang:      params.Lang,
		PlanName:  ent.Plan.Name,
		Used:      after,
		Limit:     ent.Plan.CreditLimit(),
		Threshold: threshold,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue usage alert", "user_id", params.UserID, "error", err)
	}
}

// ResolveEntitlement returns the user's plan as an explicit two-case result.
func (s *creditService) ResolveEntitlement(ctx context.Context, userID uuid.UUID) (domain.Entitlement, error) {
	const op = "credit.entitlement"

	sub, err := s.store.GetActiveSubscription(ctx, userID, s.now())
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			// A failed lookup is not "no subscription"; surface it.
			return domain.Entitlement{}, domain.Unavailable(err, op, "failed to read subscription")
		}
		plan, err := s.store.GetPlanByName(ctx, domain.PlanFree)
		if err != nil {
			// Without the free plan the system cannot determine entitlement
			// at all. Hard failure, never "allowed".
			return domain.Entitlement{}, domain.Config(err, op, "free plan is not configured")
		}
		return domain.Entitlement{
			Source: domain.EntitlementSourceFreeFallback,
			Plan:   plan,
		}, nil
	}

	plan, err := s.store.GetPlanByID(ctx, sub.PlanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Entitlement{}, domain.Config(err, op, "subscription references unknown plan")
		}
		return domain.Entitlement{}, domain.Unavailable(err, op, "failed to read plan")
	}

	return domain.Entitlement{
		Source:       domain.EntitlementSourceSubscription,
		Plan:         plan,
		Subscription: &sub,
	}, nil
}

// CurrentUsage returns the current month's ledger row, zeroed when absent.
func (s *creditService) CurrentUsage(ctx context.Context, userID uuid.UUID) (domain.UserUsage, error) {
	const op = "credit.usage"

	if userID == uuid.Nil {
		return domain.UserUsage{}, domain.Invalid(op, "user_id is required")
	}

	monthYear := domain.MonthKey(s.now())
	usage, err := s.store.GetUsage(ctx, userID, monthYear)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserUsage{UserID: userID, MonthYear: monthYear}, nil
		}
		return domain.UserUsage{}, domain.Unavailable(err, op, "failed to read usage ledger")
	}
	return usage, nil
}

// ResetUsage zeroes the current month's counters for a user.
func (s *creditService) ResetUsage(ctx context.Context, userID uuid.UUID) error {
	const op = "credit.reset"

	if userID == uuid.Nil {
		return domain.Invalid(op, "user_id is required")
	}

	monthYear := domain.MonthKey(s.now())
	if err := s.store.ResetUsage(ctx, userID, monthYear); err != nil {
		return domain.Unavailable(err, op, "failed to reset usage")
	}

	s.logger.Info("usage reset by administrator", "user_id", userID, "month", monthYear)
	return nil
}
