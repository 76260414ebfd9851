package payment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/payment"
)

func testPaddleCheckout(t *testing.T) *payment.PaddleCheckout {
	t.Helper()

	p, err := payment.NewPaddleCheckout(payment.PaddleConfig{
		APIKey:        "test_key",
		WebhookSecret: "test_secret",
		Environment:   "sandbox",
	})
	require.NoError(t, err)
	return p
}

func TestNewPaddleCheckout_Validation(t *testing.T) {
	t.Parallel()

	_, err := payment.NewPaddleCheckout(payment.PaddleConfig{WebhookSecret: "s"})
	assert.Error(t, err, "API key is required")

	_, err = payment.NewPaddleCheckout(payment.PaddleConfig{APIKey: "k"})
	assert.Error(t, err, "webhook secret is required")

	_, err = payment.NewPaddleCheckout(payment.PaddleConfig{
		APIKey: "k", WebhookSecret: "s", Environment: "staging",
	})
	assert.Error(t, err, "unknown environment is rejected")
}

func TestPaddleCheckout_CreateCheckoutLink_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := testPaddleCheckout(t)

	t.Run("rejects non-pending invoices", func(t *testing.T) {
		t.Parallel()

		_, err := p.CreateCheckoutLink(ctx, testInvoice(billing.InvoiceStatusPaid), payment.CheckoutOptions{
			PriceID: "pri_123",
		})
		assert.ErrorIs(t, err, payment.ErrInvoiceNotPending)
	})

	t.Run("requires a catalog price ID", func(t *testing.T) {
		t.Parallel()

		// Paddle prices transactions by catalog items; without a price ID
		// there is nothing to put in the transaction and the API call would
		// be rejected.
		_, err := p.CreateCheckoutLink(ctx, testInvoice(billing.InvoiceStatusPending), payment.CheckoutOptions{})
		assert.ErrorIs(t, err, payment.ErrMissingPriceID)
	})
}
