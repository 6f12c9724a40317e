// Package domain contains core business types and interfaces.
//
// This file defines user subscription records and the entitlement resolution
// result. Entitlement is an explicit two-case type so that "no subscription"
// (silent fallback to the free plan) and "lookup failed" (an error) can never
// be conflated.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the possible states of a user's subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

// UserSubscription links a user to a plan for a billing period.
// At most one active subscription exists per user.
type UserSubscription struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"user_id"`
	PlanID               uuid.UUID          `json:"plan_id"`
	Status               SubscriptionStatus `json:"status"`
	PeriodStart          time.Time          `json:"period_start"`
	PeriodEnd            time.Time          `json:"period_end"`
	StripeSubscriptionID string             `json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// IsActive returns true if the subscription currently entitles the user to
// its plan. Past-due subscriptions keep their entitlement until the period
// ends; canceled and expired ones do not.
func (s *UserSubscription) IsActive(now time.Time) bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusPastDue:
		return !now.Before(s.PeriodStart) && now.Before(s.PeriodEnd)
	default:
		return false
	}
}

// EntitlementSource identifies how a user's plan was resolved.
type EntitlementSource string

const (
	// EntitlementSourceSubscription means an active subscription row was found.
	EntitlementSourceSubscription EntitlementSource = "subscription"

	// EntitlementSourceFreeFallback means no subscription exists and the user
	// is implicitly on the free plan.
	EntitlementSourceFreeFallback EntitlementSource = "free_fallback"
)

// Entitlement is the resolved plan for a user. Lookup failures are returned
// as errors by the resolver, never as a fallback entitlement.
type Entitlement struct {
	Source       EntitlementSource
	Plan         SubscriptionPlan
	Subscription *UserSubscription // nil when Source is EntitlementSourceFreeFallback
}
