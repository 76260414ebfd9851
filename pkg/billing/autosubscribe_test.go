package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// sliceUserSource pages a fixed slice by last seen ID, mimicking keyset
// pagination over an ordered table.
type sliceUserSource struct {
	users []billing.User
	calls int
}

func (s *sliceUserSource) ListAutoSubscribe(ctx context.Context, afterID uuid.UUID, limit int) ([]billing.User, error) {
	s.calls++

	start := 0
	if afterID != uuid.Nil {
		for i, u := range s.users {
			if u.ID == afterID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(s.users) {
		end = len(s.users)
	}
	return s.users[start:end], nil
}

type mapCatalog map[uuid.UUID]*billing.Plan

func (c mapCatalog) GetPlan(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	plan, ok := c[id]
	if !ok {
		return nil, billing.ErrPlanNotFound
	}
	return plan, nil
}

func autoUser(planID *uuid.UUID) billing.User {
	return billing.User{
		ID:               uuid.New(),
		Email:            "user@example.com",
		PlanID:           planID,
		AutoSubscription: true,
	}
}

func TestAutoSubscriber_Run(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := date(2025, time.March, 10)
	plan := monthlyPlan("29.00")

	t.Run("subscribes every eligible user", func(t *testing.T) {
		t.Parallel()
		svc, store := newTestService(now)
		source := &sliceUserSource{users: []billing.User{
			autoUser(&plan.ID), autoUser(&plan.ID), autoUser(&plan.ID),
		}}

		job := billing.NewAutoSubscriber(svc, source, mapCatalog{plan.ID: plan})

		created, err := job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, created)

		for _, u := range source.users {
			sub, err := store.CurrentSubscription(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, plan.ID, sub.PlanID)
		}
	})

	t.Run("pages through more users than one chunk", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(now)
		users := make([]billing.User, 5)
		for i := range users {
			users[i] = autoUser(&plan.ID)
		}
		source := &sliceUserSource{users: users}

		job := billing.NewAutoSubscriber(svc, source, mapCatalog{plan.ID: plan},
			billing.WithChunkSize(2))

		created, err := job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, created)
		// Chunks of 2 over 5 users: the third page is short and ends the scan.
		assert.Equal(t, 3, source.calls)
	})

	t.Run("one bad user does not abort the run", func(t *testing.T) {
		t.Parallel()
		svc, store := newTestService(now)
		unknownPlan := uuid.New()
		good := autoUser(&plan.ID)
		source := &sliceUserSource{users: []billing.User{
			autoUser(nil),          // opted in without a plan configured
			autoUser(&unknownPlan), // plan vanished from the catalog
			good,
		}}

		job := billing.NewAutoSubscriber(svc, source, mapCatalog{plan.ID: plan})

		created, err := job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, created)

		_, err = store.CurrentSubscription(ctx, good.ID)
		assert.NoError(t, err)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(now)
		source := &sliceUserSource{users: []billing.User{autoUser(&plan.ID)}}

		job := billing.NewAutoSubscriber(svc, source, mapCatalog{plan.ID: plan})

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		created, err := job.Run(canceled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, created)
	})
}

func TestNewAutoSubscriber_RequiresDependencies(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(date(2025, time.March, 10))
	source := &sliceUserSource{}
	catalog := mapCatalog{}

	assert.Panics(t, func() { billing.NewAutoSubscriber(nil, source, catalog) })
	assert.Panics(t, func() { billing.NewAutoSubscriber(svc, nil, catalog) })
	assert.Panics(t, func() { billing.NewAutoSubscriber(svc, source, nil) })
}
