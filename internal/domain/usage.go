// Package domain contains core business types and interfaces.
//
// This file defines the usage ledger and the credit arithmetic. PDF analyses
// and animation generations draw from a single pooled monthly credit budget.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UsageKind identifies the type of work unit being recorded.
type UsageKind string

const (
	UsageKindPDF       UsageKind = "pdf"
	UsageKindAnimation UsageKind = "animation"
)

// Valid checks if the usage kind is one of the known work types.
func (k UsageKind) Valid() bool {
	switch k {
	case UsageKindPDF, UsageKindAnimation:
		return true
	default:
		return false
	}
}

// MonthKey returns the calendar-month ledger key for t, e.g. "2024-06".
// Always computed in UTC so the rollover instant is unambiguous.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// UserUsage is one row of the usage ledger: the per-user counters for a
// single calendar month. Rows are created lazily on first write and counters
// only ever advance, except for an administrative reset.
type UserUsage struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	MonthYear         string    `json:"month_year"` // "YYYY-MM"
	PDFsProcessed     int       `json:"pdfs_processed"`
	AnimationsCreated int       `json:"animations_created"`
	StorageUsedMB     float64   `json:"storage_used_mb"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TotalCredits returns the pooled credit consumption for the month.
func (u *UserUsage) TotalCredits() int {
	return u.PDFsProcessed + u.AnimationsCreated
}

// CreditStanding is the result of a limit check. It is derived, never stored.
type CreditStanding struct {
	CanProcess   bool   `json:"can_process"`
	CurrentUsage int    `json:"current_usage"`
	Limit        int    `json:"limit"`
	Remaining    int    `json:"remaining"`
	Message      string `json:"message,omitempty"` // set when CanProcess is false
}

// NewCreditStanding computes the standing for the given usage against a plan.
// Both work kinds share one pool; remaining is clamped at zero.
func NewCreditStanding(usage *UserUsage, plan *SubscriptionPlan) CreditStanding {
	current := 0
	if usage != nil {
		current = usage.TotalCredits()
	}
	limit := plan.CreditLimit()
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return CreditStanding{
		CanProcess:   current < limit,
		CurrentUsage: current,
		Limit:        limit,
		Remaining:    remaining,
	}
}

// UsageAlertThresholds are the fractions of the monthly limit at which the
// user is notified by email.
var UsageAlertThresholds = []float64{0.8, 1.0}

// CrossedThreshold returns the highest alert threshold crossed by moving the
// pooled usage count from before to after, or 0 if none was crossed.
func CrossedThreshold(before, after, limit int) float64 {
	if limit <= 0 || after <= before {
		return 0
	}
	crossed := 0.0
	for _, t := range UsageAlertThresholds {
		mark := int(float64(limit) * t)
		if mark < 1 {
			mark = 1
		}
		if before < mark && after >= mark {
			crossed = t
		}
	}
	return crossed
}

// UsageAlertParams describes a usage threshold notification to deliver.
// Email and Lang come from the recording caller; the entitlement service
// itself does not store user contact details.
type UsageAlertParams struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Lang      string    `json:"lang"`
	PlanName  string    `json:"plan_name"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Threshold float64   `json:"threshold"`
}

// String implements fmt.Stringer for log output.
func (c CreditStanding) String() string {
	return fmt.Sprintf("%d/%d credits used", c.CurrentUsage, c.Limit)
}
