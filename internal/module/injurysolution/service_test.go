package injurysolution

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportsclub/server/internal/module/catalog"
	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/module/payment/paymenttest"
)

type solutionCatalog map[uuid.UUID]*catalog.InjuryExerciseSolution

func (c solutionCatalog) GetInjuryExerciseSolution(_ context.Context, id uuid.UUID) (*catalog.InjuryExerciseSolution, error) {
	solution, ok := c[id]
	if !ok {
		return nil, fmt.Errorf("%w: injury solution %s", payment.ErrTargetNotFound, id)
	}
	return solution, nil
}

func newService(t *testing.T) (*Service, *paymenttest.Gateway, *paymenttest.Events, *catalog.InjuryExerciseSolution) {
	t.Helper()
	solution := &catalog.InjuryExerciseSolution{ID: uuid.New(), Title: "Runner's Knee Rehab", Price: decimal.RequireFromString("60.00")}
	gateway := paymenttest.NewGateway()
	events := &paymenttest.Events{}
	svc := NewService(paymenttest.NewStore[Purchase, *Purchase](), solutionCatalog{solution.ID: solution}, gateway, nil,
		payment.WithEventPublisher(events))
	return svc, gateway, events, solution
}

func TestService_Buy(t *testing.T) {
	ctx := context.Background()

	t.Run("fixes the price at purchase time", func(t *testing.T) {
		svc, _, _, solution := newService(t)
		p, err := svc.Buy(ctx, uuid.New(), solution.ID, "")
		require.NoError(t, err)

		solution.Price = decimal.RequireFromString("75.00")
		stored, err := svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, stored.PriceDue.Equal(decimal.RequireFromString("60")))
		assert.Equal(t, payment.StatusPending, stored.PaymentStatus)
	})

	t.Run("duplicate", func(t *testing.T) {
		svc, _, _, solution := newService(t)
		owner := uuid.New()
		_, err := svc.Buy(ctx, owner, solution.ID, "")
		require.NoError(t, err)
		_, err = svc.Buy(ctx, owner, solution.ID, "")
		assert.ErrorIs(t, err, payment.ErrDuplicatePurchase)
	})

	t.Run("unknown solution", func(t *testing.T) {
		svc, _, _, _ := newService(t)
		_, err := svc.Buy(ctx, uuid.New(), uuid.New(), "")
		assert.ErrorIs(t, err, payment.ErrTargetNotFound)
	})
}

func TestService_ManualStatus(t *testing.T) {
	ctx := context.Background()
	svc, gateway, events, solution := newService(t)

	p, err := svc.Buy(ctx, uuid.New(), solution.ID, "")
	require.NoError(t, err)

	snap, err := svc.Payments().SetStatus(ctx, p.ID, "Awaiting Confirmation", "https://gateway.test/poll/manual")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusAwaitingConfirmation, snap.PaymentStatus)
	assert.Equal(t, "https://gateway.test/poll/manual", snap.PollURL)

	_, err = svc.Payments().SetStatus(ctx, p.ID, payment.StatusCreated, "")
	assert.ErrorIs(t, err, payment.ErrStatusNotAllowed)

	snap, err = svc.Payments().SetStatus(ctx, p.ID, payment.StatusPaid, "")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, snap.PaymentStatus)
	assert.Contains(t, events.Types(), "payment.succeeded")

	_, err = svc.Payments().SetStatus(ctx, p.ID, payment.StatusPending, "")
	assert.ErrorIs(t, err, payment.ErrInvalidTransition)
	assert.Empty(t, gateway.Pushes())
}

func TestPurchaseDomain_Notice(t *testing.T) {
	p := &Purchase{SolutionTitle: "Shin Splints Recovery"}
	p.ContactEmail = "a@example.com"

	n, ok := purchaseDomain{}.Notice(payment.NoticePaymentSucceeded, p)
	require.True(t, ok)
	assert.Equal(t, "payment_succeeded", n.Template)
	assert.Equal(t, "Shin Splints Recovery", n.Data["Item"])

	_, ok = purchaseDomain{}.Notice("unknown", p)
	assert.False(t, ok)
}
