package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthKey(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"plain utc", time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC), "2024-06"},
		{"first instant of month", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "2024-06"},
		{"last instant of month", time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC), "2024-06"},
		// 2024-07-01 02:00 +03:00 is still 2024-06 in UTC
		{"timezone normalized to utc", time.Date(2024, 7, 1, 2, 0, 0, 0, time.FixedZone("TRT", 3*3600)), "2024-06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MonthKey(tt.in))
		})
	}
}

func TestCreditStanding_PooledUsage(t *testing.T) {
	plan := &SubscriptionPlan{Name: PlanFree, MonthlyCreditLimit: 5}

	tests := []struct {
		name           string
		usage          *UserUsage
		wantCanProcess bool
		wantCurrent    int
		wantRemaining  int
	}{
		{"no usage row", nil, true, 0, 5},
		{"fresh row", &UserUsage{}, true, 0, 5},
		{"partial usage", &UserUsage{PDFsProcessed: 2, AnimationsCreated: 1}, true, 3, 2},
		{"pool shared across kinds", &UserUsage{PDFsProcessed: 3, AnimationsCreated: 2}, false, 5, 0},
		{"over limit remains clamped", &UserUsage{PDFsProcessed: 7, AnimationsCreated: 1}, false, 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			standing := NewCreditStanding(tt.usage, plan)
			assert.Equal(t, tt.wantCanProcess, standing.CanProcess)
			assert.Equal(t, tt.wantCurrent, standing.CurrentUsage)
			assert.Equal(t, 5, standing.Limit)
			assert.Equal(t, tt.wantRemaining, standing.Remaining)
			assert.GreaterOrEqual(t, standing.Remaining, 0)
		})
	}
}

func TestCreditStanding_DefaultLimitFallback(t *testing.T) {
	// A plan with no configured limit uses the hard-coded default of 5.
	plan := &SubscriptionPlan{Name: PlanFree}
	standing := NewCreditStanding(nil, plan)
	assert.Equal(t, DefaultMonthlyCreditLimit, standing.Limit)
	assert.True(t, standing.CanProcess)
}

func TestCreditStanding_UpgradedPlanMidMonth(t *testing.T) {
	// Usage carried over from the free period still counts against the new,
	// larger limit.
	plan := &SubscriptionPlan{Name: PlanPro, MonthlyCreditLimit: 1000}
	usage := &UserUsage{PDFsProcessed: 3, AnimationsCreated: 2}

	standing := NewCreditStanding(usage, plan)
	assert.True(t, standing.CanProcess)
	assert.Equal(t, 5, standing.CurrentUsage)
	assert.Equal(t, 1000, standing.Limit)
	assert.Equal(t, 995, standing.Remaining)
}

func TestUsageKind_Valid(t *testing.T) {
	assert.True(t, UsageKindPDF.Valid())
	assert.True(t, UsageKindAnimation.Valid())
	assert.False(t, UsageKind("quiz").Valid())
	assert.False(t, UsageKind("").Valid())
}

func TestCrossedThreshold(t *testing.T) {
	tests := []struct {
		name          string
		before, after int
		limit         int
		want          float64
	}{
		{"no crossing", 1, 2, 10, 0},
		{"crosses 80", 7, 8, 10, 0.8},
		{"crosses 100", 9, 10, 10, 1.0},
		{"crosses both reports highest", 7, 10, 10, 1.0},
		{"already over", 10, 11, 10, 0},
		{"tiny limit", 0, 1, 1, 1.0},
		{"zero limit", 0, 1, 0, 0},
		{"no increment", 5, 5, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CrossedThreshold(tt.before, tt.after, tt.limit))
		})
	}
}
