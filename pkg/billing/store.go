package billing

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the persistence contract for subscriptions and the invoice
// ledger. Implementations must return *Subscription values with the Plan
// and PromoCode relations hydrated, since the lifecycle service prices
// upgrades and renewals from them.
type Store interface {
	// InTx runs fn against a transaction-scoped Store. All writes made
	// through the scoped store commit together or roll back together;
	// partial application must never be observable. Nested calls reuse the
	// surrounding transaction.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// CreateSubscription inserts a new subscription row.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// UpdateSubscription persists mutable subscription fields (plan_id,
	// start_date, end_date, updated_at).
	UpdateSubscription(ctx context.Context, sub *Subscription) error

	// GetSubscription retrieves a subscription by ID with relations
	// hydrated. Returns ErrSubscriptionNotFound on a miss.
	GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// CurrentSubscription returns the user's most recently created
	// subscription whose end date is in the future, or
	// ErrSubscriptionNotFound when the user has none.
	CurrentSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// CreateInvoice inserts a new invoice row.
	CreateInvoice(ctx context.Context, inv *Invoice) error

	// GetInvoice retrieves an invoice by ID. Returns ErrInvoiceNotFound on
	// a miss.
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// CancelPendingInvoices transitions every pending invoice of the
	// subscription to canceled and reports how many rows changed. Paid and
	// already-canceled invoices are untouched.
	CancelPendingInvoices(ctx context.Context, subscriptionID uuid.UUID) (int64, error)

	// MarkInvoicePaid transitions a pending invoice to paid and records the
	// payment in the same write. Returns ErrInvoiceNotPending when the
	// invoice is in any other status. Used by the payment-execution path
	// after a successful gateway charge.
	MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, payment *Payment) error
}

// PlanCatalog is the read-only plan lookup consumed from the catalog
// collaborator. The lifecycle service itself receives Plan values from
// callers; the catalog is needed where only a plan ID is at hand, such as
// the auto-subscribe batch job.
type PlanCatalog interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)
}
