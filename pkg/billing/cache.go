package billing

import (
	"context"

	"github.com/google/uuid"
)

// Cache is the interface for current-subscription caching implementations.
// Entries are keyed by user ID. A cached subscription may have expired since
// it was written, so readers re-derive activeness before trusting an entry.
type Cache interface {
	// Get retrieves the cached current subscription for a user.
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, bool)

	// Set stores a user's current subscription.
	Set(ctx context.Context, userID uuid.UUID, sub *Subscription) error

	// Delete removes a user's cache entry.
	Delete(ctx context.Context, userID uuid.UUID) error
}

// NoOpCache disables caching, useful for testing or when caching is unwanted.
type NoOpCache struct{}

func (n *NoOpCache) Get(ctx context.Context, userID uuid.UUID) (*Subscription, bool) {
	return nil, false
}

func (n *NoOpCache) Set(ctx context.Context, userID uuid.UUID, sub *Subscription) error {
	return nil
}

func (n *NoOpCache) Delete(ctx context.Context, userID uuid.UUID) error {
	return nil
}
