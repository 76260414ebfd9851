package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// dbtx is the subset of pgx shared by pools and transactions.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements billing.Store, billing.PlanCatalog and
// billing.UserSource on PostgreSQL.
type Store struct {
	db   dbtx
	pool *pgxpool.Pool // nil when the store is transaction-scoped
}

// New creates a Store backed by a pgx connection pool.
func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("pgstore: pgx pool is required")
	}
	return &Store{db: pool, pool: pool}
}

// InTx runs fn against a transaction-scoped Store. Nested calls reuse the
// surrounding transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx billing.Store) error) error {
	if s.pool == nil {
		return fn(ctx, s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(ctx, &Store{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) CreateSubscription(ctx context.Context, sub *billing.Subscription) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_id, promo_code_id, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.UserID, sub.PlanID, sub.PromoCodeID,
		sub.StartDate, sub.EndDate, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *billing.Subscription) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE subscriptions
		SET plan_id = $2, start_date = $3, end_date = $4, updated_at = $5
		WHERE id = $1`,
		sub.ID, sub.PlanID, sub.StartDate, sub.EndDate, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	query := `
		SELECT id, user_id, plan_id, promo_code_id, start_date, end_date, created_at, updated_at
		FROM subscriptions
		WHERE id = $1`
	if s.pool == nil {
		// Inside a transaction, lock the row so concurrent lifecycle calls
		// on one subscription serialize.
		query += " FOR UPDATE"
	}

	sub, err := s.scanSubscription(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, sub)
}

func (s *Store) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	sub, err := s.scanSubscription(s.db.QueryRow(ctx, `
		SELECT id, user_id, plan_id, promo_code_id, start_date, end_date, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1 AND end_date > now()
		ORDER BY created_at DESC
		LIMIT 1`, userID))
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, sub)
}

func (s *Store) CreateInvoice(ctx context.Context, inv *billing.Invoice) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO invoices (id, user_id, subscription_id, status, price, tax, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.UserID, inv.SubscriptionID, string(inv.Status),
		inv.Price.StringFixed(2), inv.Tax.StringFixed(2), inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var (
		inv        billing.Invoice
		status     string
		price, tax string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, subscription_id, status, price::text, tax::text, created_at, updated_at
		FROM invoices
		WHERE id = $1`, id).
		Scan(&inv.ID, &inv.UserID, &inv.SubscriptionID, &status, &price, &tax, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to query invoice: %w", err)
	}

	inv.Status = billing.InvoiceStatus(status)
	if inv.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("failed to parse invoice price: %w", err)
	}
	if inv.Tax, err = decimal.NewFromString(tax); err != nil {
		return nil, fmt.Errorf("failed to parse invoice tax: %w", err)
	}
	return &inv, nil
}

func (s *Store) CancelPendingInvoices(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE invoices
		SET status = $2, updated_at = now()
		WHERE subscription_id = $1 AND status = $3`,
		subscriptionID, string(billing.InvoiceStatusCanceled), string(billing.InvoiceStatusPending))
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending invoices: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, payment *billing.Payment) error {
	return s.InTx(ctx, func(ctx context.Context, tx billing.Store) error {
		txStore := tx.(*Store)

		tag, err := txStore.db.Exec(ctx, `
			UPDATE invoices
			SET status = $2, updated_at = now()
			WHERE id = $1 AND status = $3`,
			invoiceID, string(billing.InvoiceStatusPaid), string(billing.InvoiceStatusPending))
		if err != nil {
			return fmt.Errorf("failed to mark invoice paid: %w", err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := tx.GetInvoice(ctx, invoiceID); err != nil {
				return err
			}
			return billing.ErrInvoiceNotPending
		}

		_, err = txStore.db.Exec(ctx, `
			INSERT INTO payments (id, invoice_id, payment_method_id, amount, transaction_id, created_at)
			VALUES ($1, $2, $3, $4, $5, now())`,
			payment.ID, payment.InvoiceID, payment.PaymentMethodID,
			payment.Amount.StringFixed(2), payment.TransactionID)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		return nil
	})
}

// GetPlan implements billing.PlanCatalog.
func (s *Store) GetPlan(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	var (
		plan  billing.Plan
		ptype string
		price string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, name, description, position, type, price::text,
		       COALESCE(stripe_price_id, ''), COALESCE(paypal_plan_id, '')
		FROM plans
		WHERE id = $1`, id).
		Scan(&plan.ID, &plan.Name, &plan.Description, &plan.Position, &ptype, &price,
			&plan.StripePriceID, &plan.PayPalPlanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}

	plan.Type = billing.PlanType(ptype)
	if plan.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("failed to parse plan price: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, plan_id, name, COALESCE(description, '')
		FROM plan_features
		WHERE plan_id = $1
		ORDER BY name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f billing.PlanFeature
		if err := rows.Scan(&f.ID, &f.PlanID, &f.Name, &f.Description); err != nil {
			return nil, fmt.Errorf("failed to scan plan feature: %w", err)
		}
		plan.Features = append(plan.Features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plan features: %w", err)
	}

	return &plan, nil
}

// GetPromoCodeByCode looks up a promo code by its unique code string.
func (s *Store) GetPromoCodeByCode(ctx context.Context, code string) (*billing.PromoCode, error) {
	return s.scanPromoCode(s.db.QueryRow(ctx, `
		SELECT id, user_id, code, type, value::text
		FROM promo_codes
		WHERE code = $1`, code))
}

// ListAutoSubscribe implements billing.UserSource: users opted into
// auto-subscription with a configured plan and no active subscription,
// paged by user ID.
func (s *Store) ListAutoSubscribe(ctx context.Context, afterID uuid.UUID, limit int) ([]billing.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.email, u.name, COALESCE(u.stripe_customer_id, ''), u.plan_id, u.auto_subscription
		FROM users u
		WHERE u.auto_subscription = TRUE
		  AND u.plan_id IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM subscriptions s
			WHERE s.user_id = u.id AND s.end_date > now()
		  )
		  AND u.id > $1
		ORDER BY u.id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query auto-subscribe users: %w", err)
	}
	defer rows.Close()

	var users []billing.User
	for rows.Next() {
		var u billing.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.StripeCustomerID, &u.PlanID, &u.AutoSubscription); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return users, nil
}

func (s *Store) scanSubscription(row pgx.Row) (*billing.Subscription, error) {
	var sub billing.Subscription
	err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.PromoCodeID,
		&sub.StartDate, &sub.EndDate, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	return &sub, nil
}

// hydrate loads the Plan and PromoCode relations the lifecycle service
// prices from.
func (s *Store) hydrate(ctx context.Context, sub *billing.Subscription) (*billing.Subscription, error) {
	plan, err := s.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	sub.Plan = plan

	if sub.PromoCodeID != nil {
		promo, err := s.scanPromoCode(s.db.QueryRow(ctx, `
			SELECT id, user_id, code, type, value::text
			FROM promo_codes
			WHERE id = $1`, *sub.PromoCodeID))
		if err != nil {
			return nil, err
		}
		sub.PromoCode = promo
	}
	return sub, nil
}

func (s *Store) scanPromoCode(row pgx.Row) (*billing.PromoCode, error) {
	var (
		promo billing.PromoCode
		ptype string
		value string
	)
	if err := row.Scan(&promo.ID, &promo.UserID, &promo.Code, &ptype, &value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrPromoCodeNotFound
		}
		return nil, fmt.Errorf("failed to query promo code: %w", err)
	}

	promo.Type = billing.PromoCodeType(ptype)
	var err error
	if promo.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("failed to parse promo code value: %w", err)
	}
	return &promo, nil
}
