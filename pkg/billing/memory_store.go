package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and single-process
// deployments. A coarse mutex serializes all access, which also gives InTx
// its atomicity: the transaction callback runs under the lock against the
// live state, and a pre-transaction snapshot is restored on failure.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
	now   func() time.Time
}

type memoryState struct {
	subs     map[uuid.UUID]*Subscription
	subOrder []uuid.UUID // creation order, newest last
	invoices map[uuid.UUID]*Invoice
	invOrder []uuid.UUID
	payments []*Payment
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock sets the time source used for activeness checks.
// This option is useful for testing with fixed time values.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		state: &memoryState{
			subs:     make(map[uuid.UUID]*Subscription),
			invoices: make(map[uuid.UUID]*Invoice),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InTx runs fn against a transaction-scoped view of the store. On error the
// pre-transaction snapshot is restored, so partial writes never survive.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	tx := &memoryTx{state: s.state, now: s.now}

	if err := fn(ctx, tx); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createSubscription(sub)
}

func (s *MemoryStore) UpdateSubscription(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.updateSubscription(sub)
}

func (s *MemoryStore) GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getSubscription(id)
}

func (s *MemoryStore) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.currentSubscription(userID, s.now())
}

func (s *MemoryStore) CreateInvoice(ctx context.Context, inv *Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createInvoice(inv)
}

func (s *MemoryStore) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getInvoice(id)
}

func (s *MemoryStore) CancelPendingInvoices(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.cancelPendingInvoices(subscriptionID, s.now()), nil
}

func (s *MemoryStore) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, payment *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.markInvoicePaid(invoiceID, payment, s.now())
}

// Invoices returns copies of all invoices belonging to a subscription, in
// creation order. Test and inspection helper, not part of the Store contract.
func (s *MemoryStore) Invoices(subscriptionID uuid.UUID) []*Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Invoice
	for _, id := range s.state.invOrder {
		inv := s.state.invoices[id]
		if inv.SubscriptionID != nil && *inv.SubscriptionID == subscriptionID {
			out = append(out, copyInvoice(inv))
		}
	}
	return out
}

// memoryTx is the transaction-scoped view handed to InTx callbacks. The
// MemoryStore mutex is held for the whole callback, so it mutates shared
// state directly; rollback is the caller's snapshot restore.
type memoryTx struct {
	state *memoryState
	now   func() time.Time
}

// InTx reuses the surrounding transaction.
func (t *memoryTx) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

func (t *memoryTx) CreateSubscription(ctx context.Context, sub *Subscription) error {
	return t.state.createSubscription(sub)
}

func (t *memoryTx) UpdateSubscription(ctx context.Context, sub *Subscription) error {
	return t.state.updateSubscription(sub)
}

func (t *memoryTx) GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return t.state.getSubscription(id)
}

func (t *memoryTx) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return t.state.currentSubscription(userID, t.now())
}

func (t *memoryTx) CreateInvoice(ctx context.Context, inv *Invoice) error {
	return t.state.createInvoice(inv)
}

func (t *memoryTx) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return t.state.getInvoice(id)
}

func (t *memoryTx) CancelPendingInvoices(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	return t.state.cancelPendingInvoices(subscriptionID, t.now()), nil
}

func (t *memoryTx) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, payment *Payment) error {
	return t.state.markInvoicePaid(invoiceID, payment, t.now())
}

func (st *memoryState) createSubscription(sub *Subscription) error {
	st.subs[sub.ID] = copySubscription(sub)
	st.subOrder = append(st.subOrder, sub.ID)
	return nil
}

func (st *memoryState) updateSubscription(sub *Subscription) error {
	if _, ok := st.subs[sub.ID]; !ok {
		return ErrSubscriptionNotFound
	}
	st.subs[sub.ID] = copySubscription(sub)
	return nil
}

func (st *memoryState) getSubscription(id uuid.UUID) (*Subscription, error) {
	sub, ok := st.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return copySubscription(sub), nil
}

func (st *memoryState) currentSubscription(userID uuid.UUID, now time.Time) (*Subscription, error) {
	// Newest creation wins, so walk the order backwards.
	for i := len(st.subOrder) - 1; i >= 0; i-- {
		sub := st.subs[st.subOrder[i]]
		if sub.UserID == userID && sub.EndDate.After(now) {
			return copySubscription(sub), nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (st *memoryState) createInvoice(inv *Invoice) error {
	st.invoices[inv.ID] = copyInvoice(inv)
	st.invOrder = append(st.invOrder, inv.ID)
	return nil
}

func (st *memoryState) getInvoice(id uuid.UUID) (*Invoice, error) {
	inv, ok := st.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return copyInvoice(inv), nil
}

func (st *memoryState) cancelPendingInvoices(subscriptionID uuid.UUID, now time.Time) int64 {
	var n int64
	for _, inv := range st.invoices {
		if inv.SubscriptionID != nil && *inv.SubscriptionID == subscriptionID && inv.Status == InvoiceStatusPending {
			inv.Status = InvoiceStatusCanceled
			inv.UpdatedAt = now
			n++
		}
	}
	return n
}

func (st *memoryState) markInvoicePaid(invoiceID uuid.UUID, payment *Payment, now time.Time) error {
	inv, ok := st.invoices[invoiceID]
	if !ok {
		return ErrInvoiceNotFound
	}
	if inv.Status != InvoiceStatusPending {
		return ErrInvoiceNotPending
	}

	inv.Status = InvoiceStatusPaid
	inv.UpdatedAt = now

	p := *payment
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	st.payments = append(st.payments, &p)
	return nil
}

func (st *memoryState) clone() *memoryState {
	c := &memoryState{
		subs:     make(map[uuid.UUID]*Subscription, len(st.subs)),
		subOrder: append([]uuid.UUID(nil), st.subOrder...),
		invoices: make(map[uuid.UUID]*Invoice, len(st.invoices)),
		invOrder: append([]uuid.UUID(nil), st.invOrder...),
		payments: append([]*Payment(nil), st.payments...),
	}
	for id, sub := range st.subs {
		c.subs[id] = copySubscription(sub)
	}
	for id, inv := range st.invoices {
		c.invoices[id] = copyInvoice(inv)
	}
	return c
}

func copySubscription(sub *Subscription) *Subscription {
	c := *sub
	if sub.PromoCodeID != nil {
		id := *sub.PromoCodeID
		c.PromoCodeID = &id
	}
	if sub.Plan != nil {
		plan := *sub.Plan
		plan.Features = append([]PlanFeature(nil), sub.Plan.Features...)
		c.Plan = &plan
	}
	if sub.PromoCode != nil {
		promo := *sub.PromoCode
		c.PromoCode = &promo
	}
	return &c
}

func copyInvoice(inv *Invoice) *Invoice {
	c := *inv
	if inv.SubscriptionID != nil {
		id := *inv.SubscriptionID
		c.SubscriptionID = &id
	}
	return &c
}
