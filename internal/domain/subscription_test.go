package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserSubscription_IsActive(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	periodStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status SubscriptionStatus
		start  time.Time
		end    time.Time
		want   bool
	}{
		{"active within period", SubscriptionStatusActive, periodStart, periodEnd, true},
		{"past due keeps entitlement", SubscriptionStatusPastDue, periodStart, periodEnd, true},
		{"canceled", SubscriptionStatusCanceled, periodStart, periodEnd, false},
		{"expired", SubscriptionStatusExpired, periodStart, periodEnd, false},
		{"active but period over", SubscriptionStatusActive, periodStart.AddDate(0, -1, 0), periodStart, false},
		{"active but period not started", SubscriptionStatusActive, periodEnd, periodEnd.AddDate(0, 1, 0), false},
		{"active at period start instant", SubscriptionStatusActive, now, periodEnd, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &UserSubscription{
				Status:      tt.status,
				PeriodStart: tt.start,
				PeriodEnd:   tt.end,
			}
			assert.Equal(t, tt.want, sub.IsActive(now))
		})
	}
}

func TestSubscriptionPlan_CreditLimit(t *testing.T) {
	assert.Equal(t, 1000, (&SubscriptionPlan{MonthlyCreditLimit: 1000}).CreditLimit())
	assert.Equal(t, DefaultMonthlyCreditLimit, (&SubscriptionPlan{}).CreditLimit())
	assert.Equal(t, DefaultMonthlyCreditLimit, (&SubscriptionPlan{MonthlyCreditLimit: -1}).CreditLimit())
}

func TestSubscriptionPlan_DisplayName(t *testing.T) {
	plan := &SubscriptionPlan{Name: "starter", DisplayNameEN: "Starter", DisplayNameTR: "Başlangıç"}
	assert.Equal(t, "Başlangıç", plan.DisplayName("tr"))
	assert.Equal(t, "Starter", plan.DisplayName("en"))
	assert.Equal(t, "Starter", plan.DisplayName("de"))

	bare := &SubscriptionPlan{Name: "pro"}
	assert.Equal(t, "pro", bare.DisplayName("tr"))
}
