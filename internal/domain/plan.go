// Package domain contains core business types and interfaces.
//
// This file defines the subscription plan catalog types. Plans are seeded by
// migrations and administered through the admin surface; the credit policy
// treats them as read-only.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Well-known plan names. The catalog is open-ended, but the free plan must
// always exist: it is the fallback entitlement for users with no subscription.
const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
)

// DefaultMonthlyCreditLimit is applied when a plan's configured limit is zero
// or missing. One credit buys one PDF analysis or one animation generation.
const DefaultMonthlyCreditLimit = 5

// SubscriptionPlan is a named pricing tier.
type SubscriptionPlan struct {
	ID                 uuid.UUID
	Name               string // unique key: "free", "starter", "pro"
	DisplayNameEN      string
	DisplayNameTR      string
	PriceCents         int64 // monthly price in cents, 0 for free
	MonthlyCreditLimit int   // 0 means "use DefaultMonthlyCreditLimit"
	Features           []string
	Metadata           json.RawMessage // optional free-form plan metadata (e.g. provider price IDs)
	IsActive           bool
	SortOrder          int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreditLimit returns the effective monthly credit limit for the plan.
func (p *SubscriptionPlan) CreditLimit() int {
	if p.MonthlyCreditLimit > 0 {
		return p.MonthlyCreditLimit
	}
	return DefaultMonthlyCreditLimit
}

// DisplayName returns the plan name localized for the given language code
// ("tr" or "en"). Unknown languages fall back to English.
func (p *SubscriptionPlan) DisplayName(lang string) string {
	if lang == "tr" && p.DisplayNameTR != "" {
		return p.DisplayNameTR
	}
	if p.DisplayNameEN != "" {
		return p.DisplayNameEN
	}
	return p.Name
}

// PlanParams contains the validated parameters for creating or updating a plan
// through the admin surface.
type PlanParams struct {
	Name               string
	DisplayNameEN      string
	DisplayNameTR      string
	PriceCents         int64
	MonthlyCreditLimit int
	Features           []string
	Metadata           json.RawMessage
	IsActive           bool
	SortOrder          int
}
