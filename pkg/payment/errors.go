package payment

import "errors"

var (
	ErrGatewayNotRegistered = errors.New("no gateway registered for payment method kind")
	ErrInvoiceNotPending    = errors.New("invoice status is not pending")
	ErrRefundExceedsPayment = errors.New("refund amount exceeds original payment")
	ErrCustomerNotSupported = errors.New("gateway does not manage customer objects")

	ErrMissingStripePriceID = errors.New("stripe price ID not configured for plan")
	ErrMissingPayPalPlanID  = errors.New("paypal plan ID not configured for plan")
	ErrMissingPriceID       = errors.New("checkout price ID is required")

	ErrCheckoutFailed            = errors.New("failed to create checkout session")
	ErrNoCheckoutURL             = errors.New("no checkout URL returned from provider")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
)
