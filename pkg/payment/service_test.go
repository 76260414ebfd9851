package payment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/payment"
)

// fakeGateway records the last call and plays back canned responses.
type fakeGateway struct {
	chargeResult payment.Result
	chargeErr    error
	refundResult payment.Result

	chargedAmount  decimal.Decimal
	refundedAmount decimal.Decimal

	remoteSubID   string
	canceledSubID string

	customers int
}

func (g *fakeGateway) Charge(ctx context.Context, amount decimal.Decimal, method *billing.PaymentMethod) (payment.Result, error) {
	g.chargedAmount = amount
	return g.chargeResult, g.chargeErr
}

func (g *fakeGateway) Refund(ctx context.Context, p *billing.Payment, amount decimal.Decimal) (payment.Result, error) {
	g.refundedAmount = amount
	return g.refundResult, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, user *billing.User, sub *billing.Subscription) (string, error) {
	return g.remoteSubID, nil
}

func (g *fakeGateway) CancelSubscription(ctx context.Context, externalID string) error {
	g.canceledSubID = externalID
	return nil
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, user *billing.User) error {
	g.customers++
	return nil
}

func stripeMethod() *billing.PaymentMethod {
	return &billing.PaymentMethod{ID: uuid.New(), Kind: billing.PaymentMethodStripe}
}

func testInvoice(status billing.InvoiceStatus) *billing.Invoice {
	return &billing.Invoice{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: status,
		Price:  decimal.RequireFromString("29.00"),
		Tax:    decimal.RequireFromString("6.96"),
	}
}

func TestResultConstructors(t *testing.T) {
	t.Parallel()

	ok := payment.Succeeded("txn_1", map[string]any{"provider": "stripe"})
	assert.True(t, ok.Success)
	assert.Equal(t, "txn_1", ok.TransactionID)
	assert.Empty(t, ok.ErrorMessage)

	bad := payment.Failed("card_declined", nil)
	assert.False(t, bad.Success)
	assert.Empty(t, bad.TransactionID)
	assert.Equal(t, "card_declined", bad.ErrorMessage)
}

func TestService_Charge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("charges the invoice total", func(t *testing.T) {
		t.Parallel()
		gw := &fakeGateway{chargeResult: payment.Succeeded("txn_1", nil)}
		svc := payment.NewService(payment.WithGateway(billing.PaymentMethodStripe, gw))

		res, err := svc.Charge(ctx, testInvoice(billing.InvoiceStatusPending), stripeMethod())
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "35.96", gw.chargedAmount.StringFixed(2), "price plus tax")
	})

	t.Run("declines pass through as results", func(t *testing.T) {
		t.Parallel()
		gw := &fakeGateway{chargeResult: payment.Failed("card_declined", nil)}
		svc := payment.NewService(payment.WithGateway(billing.PaymentMethodStripe, gw))

		res, err := svc.Charge(ctx, testInvoice(billing.InvoiceStatusPending), stripeMethod())
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "card_declined", res.ErrorMessage)
	})

	t.Run("rejects non-pending invoices before the gateway", func(t *testing.T) {
		t.Parallel()
		gw := &fakeGateway{chargeResult: payment.Succeeded("txn_1", nil)}
		svc := payment.NewService(payment.WithGateway(billing.PaymentMethodStripe, gw))

		for _, status := range []billing.InvoiceStatus{billing.InvoiceStatusPaid, billing.InvoiceStatusCanceled} {
			_, err := svc.Charge(ctx, testInvoice(status), stripeMethod())
			assert.ErrorIs(t, err, payment.ErrInvoiceNotPending)
		}
		assert.True(t, gw.chargedAmount.IsZero(), "gateway is never called")
	})

	t.Run("unregistered kind", func(t *testing.T) {
		t.Parallel()
		svc := payment.NewService()

		_, err := svc.Charge(ctx, testInvoice(billing.InvoiceStatusPending), stripeMethod())
		assert.ErrorIs(t, err, payment.ErrGatewayNotRegistered)
	})

	t.Run("infrastructure faults stay on the error channel", func(t *testing.T) {
		t.Parallel()
		fault := errors.New("connection reset")
		gw := &fakeGateway{chargeErr: fault}
		svc := payment.NewService(payment.WithGateway(billing.PaymentMethodStripe, gw))

		_, err := svc.Charge(ctx, testInvoice(billing.InvoiceStatusPending), stripeMethod())
		assert.ErrorIs(t, err, fault)
	})
}

func TestService_Refund(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	original := &billing.Payment{
		ID:     uuid.New(),
		Amount: decimal.RequireFromString("35.96"),
	}

	t.Run("partial refund", func(t *testing.T) {
		t.Parallel()
		gw := &fakeGateway{refundResult: payment.Succeeded("re_1", nil)}
		svc := payment.NewService(payment.WithGateway(billing.PaymentMethodStripe, gw))

		res, err := svc.Refund(ctx, original, stripeMethod(), decimal.RequireFromString("10.00"))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "10.00", gw.refundedAmount.StringFixed(2))
	})

	t.Run("rejects amounts above the original payment", func(t *testing.T) {
		t.Parallel()
		gw := &fakeGateway{}
		svc := payment.NewService(payment.WithGateway(billing.PaymentMethodStripe, gw))

		_, err := svc.Refund(ctx, original, stripeMethod(), decimal.RequireFromString("36.00"))
		assert.ErrorIs(t, err, payment.ErrRefundExceedsPayment)
		assert.True(t, gw.refundedAmount.IsZero())
	})
}

func TestService_CreateCustomer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	user := &billing.User{ID: uuid.New(), Email: "jane@example.com"}

	t.Run("delegates to gateways with customer support", func(t *testing.T) {
		t.Parallel()
		gw := &fakeGateway{}
		svc := payment.NewService(payment.WithGateway(billing.PaymentMethodStripe, gw))

		require.NoError(t, svc.CreateCustomer(ctx, user, billing.PaymentMethodStripe))
		assert.Equal(t, 1, gw.customers)
	})

	t.Run("order-based gateways are unsupported", func(t *testing.T) {
		t.Parallel()
		svc := payment.NewService(payment.WithGateway(billing.PaymentMethodPayPal, orderOnly{}))

		err := svc.CreateCustomer(ctx, user, billing.PaymentMethodPayPal)
		assert.ErrorIs(t, err, payment.ErrCustomerNotSupported)
	})
}

// orderOnly implements Gateway without CustomerCreator.
type orderOnly struct{}

func (orderOnly) Charge(ctx context.Context, amount decimal.Decimal, method *billing.PaymentMethod) (payment.Result, error) {
	return payment.Succeeded("ord_1", nil), nil
}

func (orderOnly) Refund(ctx context.Context, p *billing.Payment, amount decimal.Decimal) (payment.Result, error) {
	return payment.Succeeded("ref_1", nil), nil
}

func (orderOnly) CreateSubscription(ctx context.Context, user *billing.User, sub *billing.Subscription) (string, error) {
	return "sub_1", nil
}

func (orderOnly) CancelSubscription(ctx context.Context, externalID string) error {
	return nil
}

func TestService_RemoteSubscriptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	gw := &fakeGateway{remoteSubID: "sub_abc"}
	svc := payment.NewService(payment.WithGateway(billing.PaymentMethodStripe, gw))

	id, err := svc.CreateRemoteSubscription(ctx, &billing.User{ID: uuid.New()}, &billing.Subscription{ID: uuid.New()}, billing.PaymentMethodStripe)
	require.NoError(t, err)
	assert.Equal(t, "sub_abc", id)

	require.NoError(t, svc.CancelRemoteSubscription(ctx, "sub_abc", billing.PaymentMethodStripe))
	assert.Equal(t, "sub_abc", gw.canceledSubID)

	_, err = svc.CreateRemoteSubscription(ctx, nil, nil, billing.PaymentMethodPayPal)
	assert.ErrorIs(t, err, payment.ErrGatewayNotRegistered)
}

func TestWithGateway_DuplicatePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		payment.NewService(
			payment.WithGateway(billing.PaymentMethodStripe, &fakeGateway{}),
			payment.WithGateway(billing.PaymentMethodStripe, &fakeGateway{}),
		)
	})
}
