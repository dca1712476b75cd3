package coursebooking

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
	"github.com/sportsclub/server/internal/utils/pagination"
)

type courseCatalog map[uuid.UUID]*catalog.CoachingCourse

func (c courseCatalog) GetCoachingCourse(_ context.Context, id uuid.UUID) (*catalog.CoachingCourse, error) {
	course, ok := c[id]
	if !ok {
		return nil, fmt.Errorf("%w: coaching course %s", payment.ErrTargetNotFound, id)
	}
	return course, nil
}

type fixture struct {
	service *Service
	store   *paymenttest.Store[Booking, *Booking]
	gateway *paymenttest.Gateway
	course  *catalog.CoachingCourse
	owner   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	course := &catalog.CoachingCourse{ID: uuid.New(), Title: "Sprint Mechanics", Price: decimal.RequireFromString("40.00")}
	f := &fixture{
		store:   paymenttest.NewStore[Booking, *Booking](),
		gateway: paymenttest.NewGateway(),
		course:  course,
		owner:   uuid.New(),
	}
	f.service = NewService(f.store, courseCatalog{course.ID: course}, f.gateway, nil)
	return f
}

func (f *fixture) book(t *testing.T) *Booking {
	t.Helper()
	b, err := f.service.Book(context.Background(), f.owner, f.course.ID, "runner@example.com")
	require.NoError(t, err)
	return b
}

func TestService_Book(t *testing.T) {
	t.Run("pending at the course price", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t)

		assert.Equal(t, payment.StatusPending, b.PaymentStatus)
		assert.Equal(t, AttendanceNotAttended, b.AttendanceStatus)
		assert.True(t, b.PriceDue.Equal(f.course.Price))
		assert.Equal(t, f.course.ID.String(), b.TargetRef)
	})

	t.Run("duplicate booking of the same course", func(t *testing.T) {
		f := newFixture(t)
		f.book(t)
		_, err := f.service.Book(context.Background(), f.owner, f.course.ID, "")
		assert.ErrorIs(t, err, payment.ErrDuplicatePurchase)
	})

	t.Run("another member may book the same course", func(t *testing.T) {
		f := newFixture(t)
		f.book(t)
		_, err := f.service.Book(context.Background(), uuid.New(), f.course.ID, "")
		assert.NoError(t, err)
	})

	t.Run("unknown course", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Book(context.Background(), f.owner, uuid.New(), "")
		assert.ErrorIs(t, err, payment.ErrTargetNotFound)
	})
}

func TestService_SetAttendance(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts spaced values", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t)

		updated, err := f.service.SetAttendance(ctx, b.ID, "Attended")
		require.NoError(t, err)
		assert.Equal(t, AttendanceAttended, updated.AttendanceStatus)

		updated, err = f.service.SetAttendance(ctx, b.ID, "not attended")
		require.NoError(t, err)
		assert.Equal(t, AttendanceNotAttended, updated.AttendanceStatus)
	})

	t.Run("keeps the payment status", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t)
		f.store.Modify(b.ID, func(r *payment.Record) { r.PaymentStatus = payment.StatusPaid })

		_, err := f.service.SetAttendance(ctx, b.ID, "attended")
		require.NoError(t, err)

		stored, err := f.service.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPaid, stored.PaymentStatus)
		assert.Equal(t, AttendanceAttended, stored.AttendanceStatus)
	})

	t.Run("invalid value", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t)
		_, err := f.service.SetAttendance(ctx, b.ID, "maybe")
		assert.ErrorIs(t, err, ErrInvalidAttendance)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.SetAttendance(ctx, uuid.New(), "attended")
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestService_PaymentLifecycle(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	ctx := context.Background()

	started, err := f.service.Payments().Initiate(ctx, b.ID, "0771234567")
	require.NoError(t, err)
	require.Len(t, f.gateway.Pushes(), 1)
	assert.Equal(t, "Coaching course: Sprint Mechanics", f.gateway.Pushes()[0].Items[0].Description)

	f.gateway.SetStatus(started.PollURL, "Cancelled")
	result, err := f.service.Payments().Reconcile(ctx, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCancelled, result.Status)

	// a cancelled booking frees the course for a new booking
	_, err = f.service.Book(ctx, f.owner, f.course.ID, "")
	require.NoError(t, err)

	items, total, err := f.service.List(ctx, f.owner, pagination.New())
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)
}
