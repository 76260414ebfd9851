// Package payment provides the payment gateway abstraction and the
// orchestration layer that charges pending invoices produced by
// pkg/billing.
//
// The Gateway interface has exactly four capabilities: charge, refund,
// remote subscription creation, and remote subscription cancellation.
// Ordinary charge and refund declines are represented as a Result value,
// never as an error; the error channel is reserved for infrastructure
// faults (network, malformed configuration) and for remote-subscription
// calls, which have no safe partial state to represent.
//
// Two full adapters are provided, Stripe (stripe-go) and PayPal
// (plutov/paypal), plus a Paddle hosted-checkout provider for deployments
// that prefer not to touch card data at all.
//
// The Service dispatches by payment method kind and enforces the single
// orchestration rule: only invoices in pending status may be charged.
// Marking the invoice paid after a successful charge is the caller's
// responsibility, via billing.Store.MarkInvoicePaid.
package payment
