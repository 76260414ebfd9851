package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines the public interface for subscription lifecycle
// management. Every mutating operation executes inside a single store
// transaction.
//
// Operations write their changes onto the passed *Subscription before the
// transaction commits. When an operation returns an error the store is
// rolled back but the in-memory value is not; reload the subscription
// before reusing it after a failure.
type Service interface {
	// Lifecycle
	Subscribe(ctx context.Context, user *User, plan *Plan, promo *PromoCode) (*Subscription, error)
	Upgrade(ctx context.Context, sub *Subscription, newPlan *Plan) error
	Downgrade(ctx context.Context, sub *Subscription, newPlan *Plan) error
	Cancel(ctx context.Context, sub *Subscription, reason string) error
	Renew(ctx context.Context, sub *Subscription) error

	// Queries
	CalculateProration(sub *Subscription, newPlan *Plan) (decimal.Decimal, error)
	CheckUsageLimit(ctx context.Context, user *User, feature *PlanFeature) (bool, error)
	CurrentSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)
}

type service struct {
	store Store
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates the lifecycle service. Panics if store is nil to fail
// fast during initialization. Use ServiceOption functions to inject a clock
// for tests, an entitlement cache, or a logger.
func NewService(store Store, opts ...ServiceOption) Service {
	if store == nil {
		panic("billing: Store is required")
	}

	s := &service{
		store: store,
		cache: &NoOpCache{},
		log:   slog.Default(),
		now:   func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Subscribe creates a subscription starting now plus a pending invoice for
// the first billing period, both in one transaction. An existing active
// subscription is deliberately not checked: overlapping subscriptions are
// allowed and the current-subscription query resolves the newest one.
func (s *service) Subscribe(ctx context.Context, user *User, plan *Plan, promo *PromoCode) (*Subscription, error) {
	now := s.now()

	sub := &Subscription{
		ID:        uuid.New(),
		UserID:    user.ID,
		PlanID:    plan.ID,
		StartDate: now,
		EndDate:   PeriodEnd(now, plan.Type),
		CreatedAt: now,
		UpdatedAt: now,
		Plan:      plan,
		PromoCode: promo,
	}
	if promo != nil {
		promoID := promo.ID
		sub.PromoCodeID = &promoID
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.CreateSubscription(ctx, sub); err != nil {
			return err
		}
		return tx.CreateInvoice(ctx, newInvoice(user.ID, sub.ID, PlanPrice(plan, promo), now))
	})
	if err != nil {
		return nil, errors.Join(ErrTxFailed, err)
	}

	s.invalidate(ctx, user.ID)
	s.log.InfoContext(ctx, "subscription created",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("user_id", user.ID.String()),
		slog.String("plan_id", plan.ID.String()))

	return sub, nil
}

// Upgrade switches the subscription to newPlan and restarts the billing
// window from now, keeping the original start date. The prorated difference
// for the remaining days is invoiced when positive; an exact zero produces
// no invoice.
func (s *service) Upgrade(ctx context.Context, sub *Subscription, newPlan *Plan) error {
	if sub.Plan == nil {
		return ErrPlanNotLoaded
	}

	now := s.now()
	proration := Proration(sub, newPlan, now)

	sub.PlanID = newPlan.ID
	sub.EndDate = PeriodEnd(now, newPlan.Type)
	sub.UpdatedAt = now
	sub.Plan = newPlan

	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		if proration.IsPositive() {
			return tx.CreateInvoice(ctx, newInvoice(sub.UserID, sub.ID, proration, now))
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrTxFailed, err)
	}

	s.invalidate(ctx, sub.UserID)
	s.log.InfoContext(ctx, "subscription upgraded",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("plan_id", newPlan.ID.String()),
		slog.String("proration", proration.StringFixed(2)))

	return nil
}

// Downgrade switches the subscription to newPlan and restarts the billing
// window from now. Asymmetric with Upgrade on purpose: no proration is
// computed and no invoice or credit is ever produced.
func (s *service) Downgrade(ctx context.Context, sub *Subscription, newPlan *Plan) error {
	now := s.now()

	sub.PlanID = newPlan.ID
	sub.EndDate = PeriodEnd(now, newPlan.Type)
	sub.UpdatedAt = now
	sub.Plan = newPlan

	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		return tx.UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return errors.Join(ErrTxFailed, err)
	}

	s.invalidate(ctx, sub.UserID)
	s.log.InfoContext(ctx, "subscription downgraded",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("plan_id", newPlan.ID.String()))

	return nil
}

// Cancel clamps the subscription's end date to now and cancels every still
// pending invoice of the subscription, leaving paid ones untouched. The
// reason is accepted for future auditing but not persisted. Safe to call
// twice: the second call finds no pending invoices.
func (s *service) Cancel(ctx context.Context, sub *Subscription, reason string) error {
	now := s.now()

	sub.EndDate = now
	sub.UpdatedAt = now

	var canceled int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		var err error
		canceled, err = tx.CancelPendingInvoices(ctx, sub.ID)
		return err
	})
	if err != nil {
		return errors.Join(ErrTxFailed, err)
	}

	s.invalidate(ctx, sub.UserID)
	s.log.InfoContext(ctx, "subscription cancelled",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("reason", reason),
		slog.Int64("invoices_canceled", canceled))

	return nil
}

// Renew chains a new billing period from the current end date rather than
// from now, so renewing at expiry leaves neither a gap nor an overlap, and
// creates a pending invoice at the promo-adjusted plan price.
func (s *service) Renew(ctx context.Context, sub *Subscription) error {
	if sub.Plan == nil {
		return ErrPlanNotLoaded
	}

	now := s.now()
	newStart := sub.EndDate

	sub.StartDate = newStart
	sub.EndDate = PeriodEnd(newStart, sub.Plan.Type)
	sub.UpdatedAt = now

	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		return tx.CreateInvoice(ctx, newInvoice(sub.UserID, sub.ID, PlanPrice(sub.Plan, sub.PromoCode), now))
	})
	if err != nil {
		return errors.Join(ErrTxFailed, err)
	}

	s.invalidate(ctx, sub.UserID)
	s.log.InfoContext(ctx, "subscription renewed",
		slog.String("subscription_id", sub.ID.String()),
		slog.Time("end_date", sub.EndDate))

	return nil
}

// CalculateProration is the pure preview query behind Upgrade, exposed so
// callers can quote the charge before committing to a plan change.
func (s *service) CalculateProration(sub *Subscription, newPlan *Plan) (decimal.Decimal, error) {
	if sub.Plan == nil {
		return decimal.Zero, ErrPlanNotLoaded
	}
	return Proration(sub, newPlan, s.now()), nil
}

// CheckUsageLimit reports whether the user's current active subscription
// grants the feature. A user without an active subscription gets false, not
// an error.
func (s *service) CheckUsageLimit(ctx context.Context, user *User, feature *PlanFeature) (bool, error) {
	sub, err := s.CurrentSubscription(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, err
	}

	if sub.Plan == nil {
		return false, ErrPlanNotLoaded
	}
	return sub.Plan.HasFeature(feature.ID), nil
}

// CurrentSubscription resolves the user's current subscription, consulting
// the entitlement cache first when one is configured.
func (s *service) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	if sub, ok := s.cache.Get(ctx, userID); ok {
		// Cached entries can outlive the billing window; re-check before trusting.
		if sub.IsActiveAt(s.now()) {
			return sub, nil
		}
		_ = s.cache.Delete(ctx, userID)
	}

	sub, err := s.store.CurrentSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, userID, sub); err != nil {
		s.log.WarnContext(ctx, "failed to cache current subscription",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}

	return sub, nil
}

func (s *service) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate subscription cache",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}
}
