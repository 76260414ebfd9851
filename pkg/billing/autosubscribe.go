package billing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// defaultChunkSize bounds how many users are held in memory per page.
const defaultChunkSize = 100

// UserSource lists users eligible for automatic re-subscription: opted in,
// with a configured plan, and without a currently active subscription.
// Implementations page by the last seen user ID so the scan is bounded.
type UserSource interface {
	ListAutoSubscribe(ctx context.Context, afterID uuid.UUID, limit int) ([]User, error)
}

// AutoSubscriber is the batch job that re-subscribes opted-in users whose
// subscriptions have lapsed. It is driven by an external scheduler; Run
// performs one full scan.
type AutoSubscriber struct {
	svc       Service
	users     UserSource
	catalog   PlanCatalog
	log       *slog.Logger
	chunkSize int
}

// AutoSubscriberOption configures an AutoSubscriber.
type AutoSubscriberOption func(*AutoSubscriber)

// WithChunkSize overrides the page size of the user scan.
func WithChunkSize(n int) AutoSubscriberOption {
	return func(a *AutoSubscriber) {
		if n > 0 {
			a.chunkSize = n
		}
	}
}

// WithAutoSubscriberLogger sets the structured logger used for per-user
// failure reporting.
func WithAutoSubscriberLogger(log *slog.Logger) AutoSubscriberOption {
	return func(a *AutoSubscriber) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAutoSubscriber creates the batch job. Panics on nil dependencies to
// fail fast during initialization.
func NewAutoSubscriber(svc Service, users UserSource, catalog PlanCatalog, opts ...AutoSubscriberOption) *AutoSubscriber {
	if svc == nil {
		panic("billing: Service is required")
	}
	if users == nil {
		panic("billing: UserSource is required")
	}
	if catalog == nil {
		panic("billing: PlanCatalog is required")
	}

	a := &AutoSubscriber{
		svc:       svc,
		users:     users,
		catalog:   catalog,
		log:       slog.Default(),
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run performs one scan over eligible users and subscribes each to their
// configured plan. A failure for one user is logged and does not abort the
// rest of the chunk or the run; only context cancellation and paging errors
// stop the scan. Returns how many subscriptions were created.
func (a *AutoSubscriber) Run(ctx context.Context) (int, error) {
	var created int
	var afterID uuid.UUID

	for {
		users, err := a.users.ListAutoSubscribe(ctx, afterID, a.chunkSize)
		if err != nil {
			return created, err
		}
		if len(users) == 0 {
			return created, nil
		}

		for i := range users {
			if err := ctx.Err(); err != nil {
				return created, err
			}
			if a.subscribeUser(ctx, &users[i]) {
				created++
			}
		}

		afterID = users[len(users)-1].ID
		if len(users) < a.chunkSize {
			return created, nil
		}
	}
}

func (a *AutoSubscriber) subscribeUser(ctx context.Context, user *User) bool {
	if user.PlanID == nil {
		a.log.ErrorContext(ctx, "could not create subscription",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", ErrMissingPlanID))
		return false
	}

	plan, err := a.catalog.GetPlan(ctx, *user.PlanID)
	if err != nil {
		a.log.ErrorContext(ctx, "could not create subscription",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err))
		return false
	}

	if _, err := a.svc.Subscribe(ctx, user, plan, nil); err != nil {
		a.log.ErrorContext(ctx, "could not create subscription",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err))
		return false
	}
	return true
}
