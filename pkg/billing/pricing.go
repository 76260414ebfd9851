package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// taxRate is the flat tax applied to every invoice. There is no
// jurisdiction logic; callers needing a different rate tax upstream.
var taxRate = decimal.RequireFromString("0.24")

var (
	daysPerMonth = decimal.NewFromInt(30)
	daysPerYear  = decimal.NewFromInt(365)
	oneHundred   = decimal.NewFromInt(100)
)

// PeriodEnd returns the end of a billing period starting at start. Month
// and year arithmetic is calendar-aware with day clamping, so Jan 31 plus
// one month lands on Feb 28 (or 29), not Mar 3.
func PeriodEnd(start time.Time, planType PlanType) time.Time {
	switch planType {
	case PlanTypeDaily:
		return start.AddDate(0, 0, 1)
	case PlanTypeMonthly:
		return addMonths(start, 1)
	case PlanTypeYearly:
		return addMonths(start, 12)
	default:
		return start
	}
}

// PlanPrice returns the plan price after applying an optional promo code.
// Fixed discounts floor at zero; percentage discounts do not, matching the
// discount formula exactly (a percentage in [0,100] cannot go negative).
func PlanPrice(plan *Plan, promo *PromoCode) decimal.Decimal {
	price := plan.Price
	if promo == nil {
		return price
	}

	switch promo.Type {
	case PromoCodeFixed:
		discounted := price.Sub(promo.Value)
		if discounted.IsNegative() {
			return decimal.Zero
		}
		return discounted
	case PromoCodePercentage:
		return price.Mul(decimal.NewFromInt(1).Sub(promo.Value.Div(oneHundred)))
	default:
		return price
	}
}

// Tax returns the flat 24% tax for a price. Rounding happens at storage
// boundaries, not here.
func Tax(price decimal.Decimal) decimal.Decimal {
	return price.Mul(taxRate)
}

// DailyRate converts a plan price to a per-day rate using fixed divisors
// (30 for monthly, 365 for yearly) rather than actual days in the period.
func DailyRate(plan *Plan) decimal.Decimal {
	switch plan.Type {
	case PlanTypeDaily:
		return plan.Price
	case PlanTypeMonthly:
		return plan.Price.Div(daysPerMonth)
	case PlanTypeYearly:
		return plan.Price.Div(daysPerYear)
	default:
		return decimal.Zero
	}
}

// Proration returns the amount to charge when switching a subscription to
// newPlan at the given instant: the cost of the remaining days on the new
// plan minus the unused value of the current one. Never negative; cheaper
// remaining value is not refunded. Returns zero for a degenerate same-day
// billing window.
func Proration(sub *Subscription, newPlan *Plan, now time.Time) decimal.Decimal {
	remaining := sub.RemainingDaysAt(now)
	total := sub.PeriodDays()

	if total == 0 {
		return decimal.Zero
	}

	remainingDec := decimal.NewFromInt(remaining)
	unused := sub.Plan.Price.Div(decimal.NewFromInt(total)).Mul(remainingDec)
	newCost := DailyRate(newPlan).Mul(remainingDec)

	proration := newCost.Sub(unused)
	if proration.IsNegative() {
		return decimal.Zero
	}
	return proration
}

// Round2 rounds a monetary amount to two decimal places. Applied at storage
// boundaries only, so intermediate proration math keeps full precision.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// addMonths advances t by whole calendar months, clamping the day of month
// to the target month's length. time.AddDate normalizes overflow (Jan 31 +
// 1 month = Mar 3), which is wrong for billing periods.
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := lastDayOfMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		hour, minute, sec, t.Nanosecond(), t.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// daysBetween returns the absolute whole-day difference between two
// instants, matching calendar-diff semantics where the order of arguments
// does not matter.
func daysBetween(from, to time.Time) int64 {
	d := to.Sub(from)
	if d < 0 {
		d = -d
	}
	return int64(d.Hours() / 24)
}
