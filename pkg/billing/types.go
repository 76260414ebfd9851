package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanType represents the billing cycle of a plan.
type PlanType string

const (
	PlanTypeDaily   PlanType = "daily"
	PlanTypeMonthly PlanType = "monthly"
	PlanTypeYearly  PlanType = "yearly"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "pending"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusCanceled InvoiceStatus = "canceled"
)

// PromoCodeType distinguishes flat-amount from percentage discounts.
type PromoCodeType string

const (
	PromoCodeFixed      PromoCodeType = "fixed"
	PromoCodePercentage PromoCodeType = "percentage"
)

// PaymentMethodKind identifies the payment provider backing a stored method.
type PaymentMethodKind string

const (
	PaymentMethodStripe PaymentMethodKind = "stripe"
	PaymentMethodPayPal PaymentMethodKind = "paypal"
)

// User is the read-only projection of an account consumed by the billing
// engine. It is owned by the account collaborator; billing never mutates it
// except for provider customer IDs assigned during customer creation.
type User struct {
	ID               uuid.UUID
	Email            string
	Name             string
	StripeCustomerID string     // empty until a Stripe customer is created
	PlanID           *uuid.UUID // preferred plan for auto-subscription
	AutoSubscription bool       // opted into automatic re-subscription
}

// Plan describes a subscription tier from the catalog. Plans are read-only
// input to the lifecycle engine; the catalog collaborator owns them.
type Plan struct {
	ID          uuid.UUID
	Name        string
	Description string
	Position    int // display ordering in the catalog
	Type        PlanType
	Price       decimal.Decimal

	// Remote identifiers for provider-side subscription objects. Left empty
	// when the plan is not mirrored at the given provider.
	StripePriceID string
	PayPalPlanID  string

	Features []PlanFeature
}

// HasFeature reports whether the plan grants the feature with the given ID.
func (p *Plan) HasFeature(featureID uuid.UUID) bool {
	for _, f := range p.Features {
		if f.ID == featureID {
			return true
		}
	}
	return false
}

// PlanFeature is a capability granted by a plan, matched by ID during
// entitlement checks.
type PlanFeature struct {
	ID          uuid.UUID
	PlanID      uuid.UUID
	Name        string
	Description string
}

// PromoCode is a discount owned by its issuing user and looked up by code.
// Immutable while in use.
type PromoCode struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Code   string
	Type   PromoCodeType
	Value  decimal.Decimal
}

// PaymentMethod is a stored payment instrument belonging to a user.
type PaymentMethod struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Kind       PaymentMethodKind
	CustomerID string // provider-side customer reference
	Token      string // provider-side payment method reference
	CreatedAt  time.Time
}

// Payment records a successful gateway charge against an invoice. It is
// written by the payment-execution path, never by the lifecycle engine.
type Payment struct {
	ID              uuid.UUID
	InvoiceID       uuid.UUID
	PaymentMethodID uuid.UUID
	Amount          decimal.Decimal
	TransactionID   string
	CreatedAt       time.Time
}
