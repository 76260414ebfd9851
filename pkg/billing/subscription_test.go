package billing_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

func TestSubscription_IsActiveAt(t *testing.T) {
	t.Parallel()

	sub := &billing.Subscription{
		StartDate: date(2025, time.January, 1),
		EndDate:   date(2025, time.February, 1),
	}

	assert.True(t, sub.IsActiveAt(date(2025, time.January, 15)))
	assert.True(t, sub.IsActiveAt(date(2025, time.January, 31)))
	assert.False(t, sub.IsActiveAt(date(2025, time.February, 1)), "activeness is strict: end date itself is expired")
	assert.False(t, sub.IsActiveAt(date(2025, time.March, 1)))
}

func TestSubscription_PeriodDays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end time.Time
		want       int64
	}{
		{"31-day month", date(2025, time.January, 1), date(2025, time.February, 1), 31},
		{"28-day month", date(2025, time.February, 1), date(2025, time.March, 1), 28},
		{"year", date(2025, time.January, 1), date(2026, time.January, 1), 365},
		{"zero window", date(2025, time.January, 1), date(2025, time.January, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sub := &billing.Subscription{StartDate: tt.start, EndDate: tt.end}
			assert.Equal(t, tt.want, sub.PeriodDays())
		})
	}
}

func TestSubscription_RemainingDaysAt(t *testing.T) {
	t.Parallel()

	sub := &billing.Subscription{
		StartDate: date(2025, time.January, 1),
		EndDate:   date(2025, time.February, 1),
	}

	assert.Equal(t, int64(15), sub.RemainingDaysAt(date(2025, time.January, 17)))
	assert.Equal(t, int64(0), sub.RemainingDaysAt(date(2025, time.February, 1)))
	// Expired windows count forward from the end date, not negative.
	assert.Equal(t, int64(9), sub.RemainingDaysAt(date(2025, time.February, 10)))
}

func TestPlan_HasFeature(t *testing.T) {
	t.Parallel()

	f := billing.PlanFeature{ID: uuid.New(), Name: "api_access"}
	plan := monthlyPlan("29.00")
	plan.Features = []billing.PlanFeature{f}

	assert.True(t, plan.HasFeature(f.ID))
	assert.False(t, monthlyPlan("29.00").HasFeature(f.ID))
}
