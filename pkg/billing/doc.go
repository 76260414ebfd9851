// Package billing provides the subscription lifecycle and billing engine:
// plan pricing with promo codes, calendar-aware billing periods, proration
// on plan changes, flat-rate tax, and the invoice ledger that drives
// payment-gateway charges.
//
// The package follows a service-oriented architecture with clear separation
// of concerns:
//
//   - Service: lifecycle operations (Subscribe, Upgrade, Downgrade, Cancel,
//     Renew) plus the CalculateProration preview and feature entitlement
//     checks
//   - Store: persistence contract with an explicit transaction boundary;
//     every lifecycle operation runs inside a single transaction
//   - Cache: optional entitlement cache for the current-subscription lookup
//   - AutoSubscriber: chunked batch job that re-subscribes opted-in users
//
// Pricing is implemented as pure functions over plans, promo codes, and
// dates, with all monetary math on shopspring/decimal. Amounts are rounded
// to two decimal places only at storage boundaries; proration keeps full
// precision in between.
//
// Payment execution is deliberately outside this package: the engine only
// produces and cancels invoices. Pending invoices are charge candidates for
// the payment orchestration layer in pkg/payment, which marks them paid via
// Store.MarkInvoicePaid after a successful gateway charge.
//
// # Quick Start
//
//	store := billing.NewMemoryStore()
//	svc := billing.NewService(store)
//
//	sub, err := svc.Subscribe(ctx, user, plan, nil)
//	if err != nil {
//	    // handle error
//	}
//
// Subscription activeness is derived, not stored: a subscription is active
// while its EndDate is in the future, and the "current" subscription of a
// user is the most recently created row with a future EndDate.
package billing
