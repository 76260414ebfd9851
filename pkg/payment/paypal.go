package payment

import (
	"context"
	"errors"
	"fmt"

	paypal "github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// PayPalConfig holds configuration for the PayPal gateway.
type PayPalConfig struct {
	ClientID  string `env:"PAYPAL_CLIENT_ID,required"`
	Secret    string `env:"PAYPAL_SECRET,required"`
	Live      bool   `env:"PAYPAL_LIVE" envDefault:"false"`
	Currency  string `env:"PAYPAL_CURRENCY" envDefault:"USD"`
	ReturnURL string `env:"PAYPAL_RETURN_URL"`
	CancelURL string `env:"PAYPAL_CANCEL_URL"`
}

// PayPalGateway implements Gateway on top of PayPal orders (charge),
// capture refunds, and the billing subscriptions API.
type PayPalGateway struct {
	client *paypal.Client
	cfg    PayPalConfig
}

// NewPayPalGateway creates a PayPal-backed gateway.
func NewPayPalGateway(cfg PayPalConfig) (*PayPalGateway, error) {
	base := paypal.APIBaseSandBox
	if cfg.Live {
		base = paypal.APIBaseLive
	}

	client, err := paypal.NewClient(cfg.ClientID, cfg.Secret, base)
	if err != nil {
		return nil, fmt.Errorf("failed to create paypal client: %w", err)
	}

	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}

	return &PayPalGateway{client: client, cfg: cfg}, nil
}

// Charge creates an order for the amount and captures it immediately.
// PayPal API rejections become failed Results; transport faults stay on the
// error channel.
func (g *PayPalGateway) Charge(ctx context.Context, amount decimal.Decimal, method *billing.PaymentMethod) (Result, error) {
	units := []paypal.PurchaseUnitRequest{
		{
			Amount: &paypal.PurchaseUnitAmount{
				Currency: g.cfg.Currency,
				Value:    amount.StringFixed(2),
			},
		},
	}

	appCtx := &paypal.ApplicationContext{
		ReturnURL: g.cfg.ReturnURL,
		CancelURL: g.cfg.CancelURL,
	}

	order, err := g.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return paypalFailure(err)
	}

	capture, err := g.client.CaptureOrder(ctx, order.ID, paypal.CaptureOrderRequest{})
	if err != nil {
		return paypalFailure(err)
	}

	captureID := capturedPaymentID(capture)
	if capture.Status == "COMPLETED" && captureID != "" {
		return Succeeded(captureID, map[string]any{
			"order_id": order.ID,
			"amount":   amount.StringFixed(2),
			"currency": g.cfg.Currency,
			"status":   capture.Status,
		}), nil
	}

	return Failed(fmt.Sprintf("paypal order status: %s", capture.Status),
		map[string]any{"order_id": order.ID}), nil
}

// Refund refunds a captured payment, partially or in full.
func (g *PayPalGateway) Refund(ctx context.Context, payment *billing.Payment, amount decimal.Decimal) (Result, error) {
	refund, err := g.client.RefundCapture(ctx, payment.TransactionID, paypal.RefundCaptureRequest{
		Amount: &paypal.Money{
			Currency: g.cfg.Currency,
			Value:    amount.StringFixed(2),
		},
	})
	if err != nil {
		return paypalFailure(err)
	}

	if refund.Status == "COMPLETED" && refund.ID != "" {
		return Succeeded(refund.ID, map[string]any{
			"amount":              amount.StringFixed(2),
			"currency":            g.cfg.Currency,
			"status":              refund.Status,
			"original_payment_id": payment.ID.String(),
			"original_capture_id": payment.TransactionID,
		}), nil
	}

	return Failed(fmt.Sprintf("paypal refund status: %s", refund.Status),
		map[string]any{"refund_id": refund.ID}), nil
}

// CreateSubscription creates a PayPal billing subscription for the plan's
// configured PayPal plan ID.
func (g *PayPalGateway) CreateSubscription(ctx context.Context, user *billing.User, sub *billing.Subscription) (string, error) {
	if sub.Plan == nil {
		return "", billing.ErrPlanNotLoaded
	}
	if sub.Plan.PayPalPlanID == "" {
		return "", fmt.Errorf("%w %s", ErrMissingPayPalPlanID, sub.PlanID)
	}

	remote, err := g.client.CreateSubscription(ctx, paypal.SubscriptionBase{
		PlanID: sub.Plan.PayPalPlanID,
		Subscriber: &paypal.Subscriber{
			EmailAddress: user.Email,
			Name: paypal.CreateOrderPayerName{
				GivenName: user.Name,
			},
		},
		ApplicationContext: &paypal.ApplicationContext{
			ReturnURL: g.cfg.ReturnURL,
			CancelURL: g.cfg.CancelURL,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create paypal subscription: %w", err)
	}
	return remote.ID, nil
}

// CancelSubscription cancels the PayPal subscription immediately.
func (g *PayPalGateway) CancelSubscription(ctx context.Context, externalID string) error {
	if err := g.client.CancelSubscription(ctx, externalID, "user requested cancellation"); err != nil {
		return fmt.Errorf("failed to cancel paypal subscription: %w", err)
	}
	return nil
}

// paypalFailure maps a PayPal API rejection to a failed Result. Anything
// that is not an API response error stays on the error channel.
func paypalFailure(err error) (Result, error) {
	var apiErr *paypal.ErrorResponse
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return Failed(msg, map[string]any{"error_name": apiErr.Name}), nil
	}
	return Result{}, err
}

func capturedPaymentID(capture *paypal.CaptureOrderResponse) string {
	for _, unit := range capture.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, c := range unit.Payments.Captures {
			if c.ID != "" {
				return c.ID
			}
		}
	}
	return ""
}
