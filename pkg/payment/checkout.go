package payment

import (
	"context"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// CheckoutProvider is the hosted-payment alternative to direct gateway
// charges: instead of charging a stored method, the provider hosts a
// payment page for a pending invoice and reports the outcome through
// webhooks. Deployments using a CheckoutProvider never touch card data.
type CheckoutProvider interface {
	// CreateCheckoutLink creates a hosted checkout session for a pending
	// invoice. Charging a non-pending invoice is a hard error.
	CreateCheckoutLink(ctx context.Context, inv *billing.Invoice, opts CheckoutOptions) (*CheckoutLink, error)

	// ParseWebhook validates the signature of an incoming webhook and
	// returns the normalized event. Spoofed payloads must be rejected.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// CheckoutOptions carries the per-session knobs of a checkout session.
// PriceID is required: hosted providers sell catalog items, so the invoice
// must be mapped to a provider-side price.
type CheckoutOptions struct {
	PriceID    string // provider-side catalog price for the invoiced period
	Email      string // pre-fill billing email if known
	SuccessURL string // redirect after successful payment
}

// CheckoutLink is a hosted checkout session for one invoice.
type CheckoutLink struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// WebhookEventType is the normalized type of a provider webhook.
type WebhookEventType string

const (
	WebhookPaymentSucceeded WebhookEventType = "payment_succeeded"
	WebhookPaymentFailed    WebhookEventType = "payment_failed"
	WebhookUnknown          WebhookEventType = "unknown"
)

// WebhookEvent is a provider webhook normalized to what the invoice ledger
// needs: which invoice the payment was for and whether it succeeded.
type WebhookEvent struct {
	Type          WebhookEventType
	ProviderEvent string // original provider event name
	TransactionID string // provider's transaction ID
	InvoiceID     string // invoice ID from the session's custom data
	Raw           map[string]any
}
