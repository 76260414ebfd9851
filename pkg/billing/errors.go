package billing

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPromoCodeNotFound    = errors.New("promo code not found")

	ErrPlanNotLoaded     = errors.New("subscription plan relation not loaded")
	ErrInvoiceNotPending = errors.New("invoice status is not pending")

	// ErrForbidden is returned by callers that verify subscription ownership
	// before invoking lifecycle operations. The engine itself does not check
	// ownership; UserID is exported so the request layer can.
	ErrForbidden = errors.New("subscription belongs to another user")

	ErrMissingPlanID      = errors.New("user has no plan configured for auto-subscription")
	ErrTxFailed           = errors.New("billing transaction failed")
	ErrFailedToCacheEntry = errors.New("failed to cache subscription entry")
)
