package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// StripeConfig holds configuration for the Stripe gateway.
type StripeConfig struct {
	APIKey   string `env:"STRIPE_API_KEY,required"`
	Currency string `env:"STRIPE_CURRENCY" envDefault:"eur"`
}

// StripeGateway implements Gateway on top of Stripe PaymentIntents,
// Refunds, and Subscriptions.
type StripeGateway struct {
	client   *stripeclient.API
	currency string
}

// NewStripeGateway creates a Stripe-backed gateway.
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("stripe API key is required")
	}

	sc := &stripeclient.API{}
	sc.Init(cfg.APIKey, nil)

	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyEUR)
	}

	return &StripeGateway{client: sc, currency: currency}, nil
}

// Charge creates and confirms a PaymentIntent for the amount. Stripe API
// errors become failed Results; anything else is an infrastructure fault.
func (g *StripeGateway) Charge(ctx context.Context, amount decimal.Decimal, method *billing.PaymentMethod) (Result, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(g.currency),
		Customer: stripe.String(method.CustomerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}

	intent, err := g.client.PaymentIntents.New(params)
	if err != nil {
		return stripeFailure(err)
	}

	if intent.Status == stripe.PaymentIntentStatusSucceeded {
		return Succeeded(intent.ID, map[string]any{
			"amount":   amount.StringFixed(2),
			"currency": string(intent.Currency),
			"status":   string(intent.Status),
		}), nil
	}

	return Failed(fmt.Sprintf("payment failed with status: %s", intent.Status),
		map[string]any{"payment_intent_id": intent.ID}), nil
}

// Refund refunds part or all of a captured PaymentIntent.
func (g *StripeGateway) Refund(ctx context.Context, payment *billing.Payment, amount decimal.Decimal) (Result, error) {
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(payment.TransactionID),
		Amount:        stripe.Int64(toMinorUnits(amount)),
	}

	refund, err := g.client.Refunds.New(params)
	if err != nil {
		return stripeFailure(err)
	}

	if refund.Status == stripe.RefundStatusSucceeded {
		return Succeeded(refund.ID, map[string]any{
			"amount":              amount.StringFixed(2),
			"currency":            string(refund.Currency),
			"status":              string(refund.Status),
			"original_payment_id": payment.ID.String(),
		}), nil
	}

	return Failed(fmt.Sprintf("refund failed with status: %s", refund.Status),
		map[string]any{"refund_id": refund.ID}), nil
}

// CreateSubscription creates the Stripe subscription object for the plan's
// configured price. Requires a Stripe customer; one is created on the fly
// when the user has none yet.
func (g *StripeGateway) CreateSubscription(ctx context.Context, user *billing.User, sub *billing.Subscription) (string, error) {
	if sub.Plan == nil {
		return "", billing.ErrPlanNotLoaded
	}
	if sub.Plan.StripePriceID == "" {
		return "", fmt.Errorf("%w %s", ErrMissingStripePriceID, sub.PlanID)
	}

	if err := g.CreateCustomer(ctx, user); err != nil {
		return "", err
	}

	params := &stripe.SubscriptionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(user.StripeCustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(sub.Plan.StripePriceID)},
		},
	}
	params.AddMetadata("subscription_id", sub.ID.String())
	params.AddMetadata("plan_id", sub.PlanID.String())

	remote, err := g.client.Subscriptions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe subscription: %w", err)
	}
	return remote.ID, nil
}

// CancelSubscription cancels the Stripe subscription immediately.
func (g *StripeGateway) CancelSubscription(ctx context.Context, externalID string) error {
	params := &stripe.SubscriptionCancelParams{
		Params: stripe.Params{Context: ctx},
	}
	if _, err := g.client.Subscriptions.Cancel(externalID, params); err != nil {
		return fmt.Errorf("failed to cancel stripe subscription: %w", err)
	}
	return nil
}

// CreateCustomer creates a Stripe customer for the user unless one already
// exists, and writes the new ID back onto the user. Persisting the ID is the
// caller's concern.
func (g *StripeGateway) CreateCustomer(ctx context.Context, user *billing.User) error {
	if user.StripeCustomerID != "" {
		return nil
	}

	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(user.Email),
		Name:   stripe.String(user.Name),
	}
	params.AddMetadata("user_id", user.ID.String())

	customer, err := g.client.Customers.New(params)
	if err != nil {
		return fmt.Errorf("failed to create stripe customer: %w", err)
	}

	user.StripeCustomerID = customer.ID
	return nil
}

// stripeFailure maps a Stripe API error to a failed Result. Non-API errors
// (transport, config) stay on the error channel.
func stripeFailure(err error) (Result, error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return Failed(stripeErr.Msg, map[string]any{"error_code": string(stripeErr.Code)}), nil
	}
	return Result{}, err
}

// toMinorUnits converts a decimal major-unit amount to integer cents.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
