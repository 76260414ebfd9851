package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription ties a user to a plan for a billing window. There is no
// stored status column: activeness is derived from EndDate, and a cancelled
// subscription is simply one whose EndDate was clamped to the cancellation
// time. Rows are never deleted, so a user accumulates billing history.
type Subscription struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	PlanID      uuid.UUID
	PromoCodeID *uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Hydrated relations, populated by stores on read and by the service on
	// create. Plan is required by upgrade/renew; PromoCode may be nil.
	Plan      *Plan
	PromoCode *PromoCode
}

// IsActiveAt reports whether the subscription covers the given instant.
// This method is useful for testing with fixed time values.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	return s.EndDate.After(now)
}

// IsActive reports whether the subscription is currently active.
func (s *Subscription) IsActive() bool {
	return s.IsActiveAt(time.Now().UTC())
}

// PeriodDays returns the whole-day length of the current billing window.
func (s *Subscription) PeriodDays() int64 {
	return daysBetween(s.StartDate, s.EndDate)
}

// RemainingDaysAt returns the whole days left in the billing window at the
// given instant. The count is an absolute calendar difference, so an already
// expired subscription still yields a non-negative value.
func (s *Subscription) RemainingDaysAt(now time.Time) int64 {
	return daysBetween(now, s.EndDate)
}
