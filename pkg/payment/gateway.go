package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// Result is the immutable outcome of a charge or refund attempt. Exactly
// one of TransactionID and ErrorMessage is populated, depending on which
// constructor built the value. Declines travel as Results, not errors, so
// callers must branch on Success rather than on a caught error.
type Result struct {
	Success       bool
	TransactionID string
	ErrorMessage  string
	Metadata      map[string]any
}

// Succeeded builds the result of a successful gateway operation.
func Succeeded(transactionID string, metadata map[string]any) Result {
	return Result{
		Success:       true,
		TransactionID: transactionID,
		Metadata:      metadata,
	}
}

// Failed builds the result of a declined or failed gateway operation.
func Failed(errorMessage string, metadata map[string]any) Result {
	return Result{
		Success:      false,
		ErrorMessage: errorMessage,
		Metadata:     metadata,
	}
}

// Gateway is the capability interface implemented by provider adapters.
type Gateway interface {
	// Charge attempts to collect amount using the stored payment method.
	// Declines come back as a failed Result; only infrastructure faults are
	// returned on the error channel.
	Charge(ctx context.Context, amount decimal.Decimal, method *billing.PaymentMethod) (Result, error)

	// Refund returns amount to the payer of an earlier payment. Partial
	// refunds (amount below the original) are supported. Same
	// result-not-error contract as Charge.
	Refund(ctx context.Context, payment *billing.Payment, amount decimal.Decimal) (Result, error)

	// CreateSubscription mirrors the subscription at the provider and
	// returns the provider's subscription ID. Failures are hard errors:
	// there is no safe partial state to represent.
	CreateSubscription(ctx context.Context, user *billing.User, sub *billing.Subscription) (string, error)

	// CancelSubscription cancels the provider-side subscription object.
	// Hard error on failure.
	CancelSubscription(ctx context.Context, externalID string) error
}

// CustomerCreator is implemented by gateways that maintain provider-side
// customer objects. CreateCustomer is idempotent: a user that already
// carries a customer ID is left untouched.
type CustomerCreator interface {
	CreateCustomer(ctx context.Context, user *billing.User) error
}
