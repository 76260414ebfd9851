package payment

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// Service orchestrates gateway calls around the invoice ledger. It holds a
// registry of gateways keyed by payment method kind and enforces the one
// rule the ledger cares about: only pending invoices are charge candidates.
//
// The service does not mark invoices paid; after a successful charge the
// caller records the payment via billing.Store.MarkInvoicePaid.
type Service struct {
	gateways map[billing.PaymentMethodKind]Gateway
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGateway registers a gateway for a payment method kind. Panics on a
// duplicate registration to force explicit configuration.
func WithGateway(kind billing.PaymentMethodKind, gw Gateway) Option {
	return func(s *Service) {
		if gw == nil {
			return
		}
		if _, exists := s.gateways[kind]; exists {
			panic("payment: gateway for kind " + string(kind) + " already registered")
		}
		s.gateways[kind] = gw
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a payment orchestration service.
func NewService(opts ...Option) *Service {
	s := &Service{
		gateways: make(map[billing.PaymentMethodKind]Gateway),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Charge collects an invoice's total (price plus tax) through the gateway
// matching the payment method. A non-pending invoice is a hard error, not a
// declined Result: charging it would double-bill or resurrect a cancelled
// period.
func (s *Service) Charge(ctx context.Context, inv *billing.Invoice, method *billing.PaymentMethod) (Result, error) {
	if !inv.IsPending() {
		return Result{}, ErrInvoiceNotPending
	}

	gw, err := s.gateway(method.Kind)
	if err != nil {
		return Result{}, err
	}

	res, err := gw.Charge(ctx, inv.Total(), method)
	if err != nil {
		return Result{}, err
	}

	s.log.InfoContext(ctx, "invoice charge attempted",
		slog.String("invoice_id", inv.ID.String()),
		slog.String("kind", string(method.Kind)),
		slog.Bool("success", res.Success))

	return res, nil
}

// Refund returns part or all of a recorded payment. Refunding more than
// the original amount is rejected before the gateway is involved.
func (s *Service) Refund(ctx context.Context, payment *billing.Payment, method *billing.PaymentMethod, amount decimal.Decimal) (Result, error) {
	if amount.GreaterThan(payment.Amount) {
		return Result{}, ErrRefundExceedsPayment
	}

	gw, err := s.gateway(method.Kind)
	if err != nil {
		return Result{}, err
	}

	return gw.Refund(ctx, payment, amount)
}

// CreateCustomer ensures the user exists as a customer at the provider.
// Gateways without customer objects (e.g. order-based providers) report
// ErrCustomerNotSupported.
func (s *Service) CreateCustomer(ctx context.Context, user *billing.User, kind billing.PaymentMethodKind) error {
	gw, err := s.gateway(kind)
	if err != nil {
		return err
	}

	creator, ok := gw.(CustomerCreator)
	if !ok {
		return ErrCustomerNotSupported
	}
	return creator.CreateCustomer(ctx, user)
}

// CreateRemoteSubscription mirrors a local subscription at the provider and
// returns the provider's subscription ID.
func (s *Service) CreateRemoteSubscription(ctx context.Context, user *billing.User, sub *billing.Subscription, kind billing.PaymentMethodKind) (string, error) {
	gw, err := s.gateway(kind)
	if err != nil {
		return "", err
	}
	return gw.CreateSubscription(ctx, user, sub)
}

// CancelRemoteSubscription cancels the provider-side subscription object.
func (s *Service) CancelRemoteSubscription(ctx context.Context, externalID string, kind billing.PaymentMethodKind) error {
	gw, err := s.gateway(kind)
	if err != nil {
		return err
	}
	return gw.CancelSubscription(ctx, externalID)
}

func (s *Service) gateway(kind billing.PaymentMethodKind) (Gateway, error) {
	gw, ok := s.gateways[kind]
	if !ok {
		return nil, ErrGatewayNotRegistered
	}
	return gw, nil
}
