package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is a ledger entry produced by the lifecycle engine. Invoices are
// created pending, move to paid by the payment-execution path, and move to
// canceled when their subscription is cancelled while still pending.
// Price and Tax are stored rounded to two decimal places.
type Invoice struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	SubscriptionID *uuid.UUID
	Status         InvoiceStatus
	Price          decimal.Decimal
	Tax            decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Total returns the chargeable amount: price plus tax.
func (i *Invoice) Total() decimal.Decimal {
	return i.Price.Add(i.Tax)
}

// IsPending reports whether the invoice is still a charge candidate.
func (i *Invoice) IsPending() bool {
	return i.Status == InvoiceStatusPending
}

// newInvoice builds a pending invoice for a subscription, rounding the
// amounts at this storage boundary.
func newInvoice(userID uuid.UUID, subscriptionID uuid.UUID, price decimal.Decimal, now time.Time) *Invoice {
	subID := subscriptionID
	return &Invoice{
		ID:             uuid.New(),
		UserID:         userID,
		SubscriptionID: &subID,
		Status:         InvoiceStatusPending,
		Price:          Round2(price),
		Tax:            Round2(Tax(price)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
