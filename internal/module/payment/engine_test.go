package payment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/module/payment/paymenttest"
	sharedevents "github.com/sportsclub/server/internal/shared/events"
	"github.com/sportsclub/server/internal/utils/metrics"
)

// --- Test domain ---

type ticket struct {
	payment.Record
	Holder string
}

type ticketDomain struct {
	policy payment.Policy
	items  func(*ticket) []payment.LineItem
}

func (d *ticketDomain) Name() string           { return "ticket" }
func (d *ticketDomain) Policy() payment.Policy { return d.policy }
func (d *ticketDomain) Payer(p *ticket) string { return p.Holder + "@athlete.com" }

func (d *ticketDomain) LineItems(p *ticket) []payment.LineItem {
	if d.items != nil {
		return d.items(p)
	}
	return []payment.LineItem{{Description: "Race entry " + p.TargetRef, Amount: p.PriceDue}}
}

func (d *ticketDomain) Notice(kind payment.NoticeKind, p *ticket) (payment.Notice, bool) {
	return payment.Notice{
		Recipient: p.ContactEmail,
		Subject:   string(kind),
		Template:  string(kind),
		Data:      map[string]any{"holder": p.Holder},
	}, true
}

// --- Mock Implementations ---

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateInvoice(number, payer string) *payment.Invoice {
	return &payment.Invoice{Number: number, Payer: payer}
}

func (m *MockGateway) SubmitMobileMoneyPush(ctx context.Context, invoice *payment.Invoice, phone string, method payment.MobileMethod) (*payment.PushResult, error) {
	args := m.Called(ctx, invoice, phone, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PushResult), args.Error(1)
}

func (m *MockGateway) PollTransaction(ctx context.Context, pollURL string) (*payment.PollResult, error) {
	args := m.Called(ctx, pollURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PollResult), args.Error(1)
}

type panicNotifier struct{}

func (panicNotifier) Notify(context.Context, payment.Notice) error { panic("smtp exploded") }

// hookNotifier hands every notice to fn.
type hookNotifier struct {
	fn func(ctx context.Context, notice payment.Notice)
}

func (h hookNotifier) Notify(ctx context.Context, notice payment.Notice) error {
	h.fn(ctx, notice)
	return nil
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("lock wait exceeded")
}

// --- Fixture ---

type fixture struct {
	engine   *payment.Engine[*ticket]
	store    *paymenttest.Store[ticket, *ticket]
	gateway  *MockGateway
	events   *paymenttest.Events
	notifier *paymenttest.Notifier
	metrics  *metrics.Metrics
	domain   *ticketDomain
}

func newFixture(t *testing.T, opts ...payment.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    paymenttest.NewStore[ticket, *ticket](),
		gateway:  new(MockGateway),
		events:   &paymenttest.Events{},
		notifier: &paymenttest.Notifier{},
		metrics:  metrics.NewWithRegistry("test", prometheus.NewRegistry()),
		domain:   &ticketDomain{policy: payment.DefaultPolicy()},
	}
	base := []payment.Option{
		payment.WithNotifier(f.notifier),
		payment.WithEventPublisher(f.events),
		payment.WithMetrics(f.metrics),
	}
	f.engine = payment.NewEngine[*ticket](f.domain, f.store, f.gateway, append(base, opts...)...)
	return f
}

func (f *fixture) create(t *testing.T, owner uuid.UUID, target string, price int64) *ticket {
	t.Helper()
	p := &ticket{
		Record: payment.Record{
			OwnerID:      owner,
			TargetRef:    target,
			PriceDue:     decimal.NewFromInt(price),
			ContactEmail: "runner@example.com",
		},
		Holder: "runner",
	}
	require.NoError(t, f.engine.Create(context.Background(), p))
	return p
}

func (f *fixture) status(t *testing.T, id uuid.UUID) payment.Status {
	t.Helper()
	p, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return p.PaymentStatus
}

func (f *fixture) expectPush(phone string, result *payment.PushResult, err error) *mock.Call {
	return f.gateway.On("SubmitMobileMoneyPush", mock.Anything, mock.AnythingOfType("*payment.Invoice"), phone, payment.MethodEcocash).
		Return(result, err)
}

func (f *fixture) expectPoll(pollURL, status string) *mock.Call {
	return f.gateway.On("PollTransaction", mock.Anything, pollURL).
		Return(&payment.PollResult{Status: status, PollURL: pollURL}, nil)
}

func (f *fixture) initiate(t *testing.T, id uuid.UUID, pollURL string) {
	t.Helper()
	f.expectPush("0771234567", &payment.PushResult{Success: true, PollURL: pollURL}, nil).Once()
	_, err := f.engine.Initiate(context.Background(), id, "0771234567")
	require.NoError(t, err)
}

func countType(types []string, eventType string) int {
	n := 0
	for _, t := range types {
		if t == eventType {
			n++
		}
	}
	return n
}

// --- Tests ---

func TestEngine_CreateInitiateReconcilePaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.create(t, uuid.New(), "race-R", 50)
	assert.Equal(t, payment.StatusUnpaid, f.status(t, p.ID))

	f.expectPush("0771234567", &payment.PushResult{Success: true, PollURL: "X", Instructions: "dial *151#"}, nil).Once()
	started, err := f.engine.Initiate(ctx, p.ID, " 0771234567 ")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, started.Status)
	assert.Equal(t, "X", started.PollURL)
	assert.Equal(t, "dial *151#", started.Instructions)
	assert.Regexp(t, `^INV-[0-9A-Z]{26}$`, started.InvoiceNumber)

	stored, err := f.store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, stored.PaymentStatus)
	assert.Equal(t, "X", stored.PollURL)
	assert.Equal(t, started.InvoiceNumber, stored.InvoiceNumber)

	f.expectPoll("X", "Paid").Once()
	rec, err := f.engine.Reconcile(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, rec.Status)
	assert.Equal(t, "Payment successful", rec.Message)
	assert.True(t, rec.Changed)
	assert.Equal(t, payment.StatusPaid, f.status(t, p.ID))

	assert.Equal(t, []string{
		sharedevents.PurchaseCreatedType,
		sharedevents.PaymentStatusChangedType,
		sharedevents.PaymentStatusChangedType,
		sharedevents.PaymentSucceededType,
	}, f.events.Types())

	notices := f.notifier.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, payment.NoticePurchaseCreated, notices[0].Kind)
	assert.Equal(t, payment.NoticePaymentSucceeded, notices[1].Kind)
	assert.Equal(t, "ticket", notices[1].Domain)
	assert.Equal(t, "runner@example.com", notices[1].Recipient)

	changes := f.store.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, payment.ReasonInitiate, changes[0].Reason)
	assert.Equal(t, payment.StatusPending, changes[0].To)
	assert.Equal(t, payment.ReasonReconcile, changes[1].Reason)
	assert.Equal(t, payment.StatusPaid, changes[1].To)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.PaymentInitiationsTotal.WithLabelValues("ticket", "accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StatusTransitionsTotal.WithLabelValues("ticket", "pending", "paid")))
	f.gateway.AssertExpectations(t)
}

func TestEngine_Create(t *testing.T) {
	t.Run("rejects duplicate active purchase", func(t *testing.T) {
		f := newFixture(t)
		owner := uuid.New()
		first := f.create(t, owner, "race-R", 50)

		dup := &ticket{Record: payment.Record{OwnerID: owner, TargetRef: "race-R", PriceDue: decimal.NewFromInt(50)}}
		err := f.engine.Create(context.Background(), dup)

		assert.ErrorIs(t, err, payment.ErrDuplicatePurchase)
		assert.Contains(t, err.Error(), first.ID.String())
		assert.Equal(t, 1, f.store.Len())
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.DuplicatePurchasesTotal.WithLabelValues("ticket")))
	})

	t.Run("allows a new purchase after cancellation", func(t *testing.T) {
		f := newFixture(t)
		owner := uuid.New()
		first := f.create(t, owner, "race-R", 50)
		f.store.Modify(first.ID, func(r *payment.Record) { r.PaymentStatus = payment.StatusCancelled })

		f.create(t, owner, "race-R", 50)
		assert.Equal(t, 2, f.store.Len())
	})

	t.Run("other owner or target is not a duplicate", func(t *testing.T) {
		f := newFixture(t)
		owner := uuid.New()
		f.create(t, owner, "race-R", 50)
		f.create(t, owner, "race-S", 50)
		f.create(t, uuid.New(), "race-R", 50)
		assert.Equal(t, 3, f.store.Len())
	})

	t.Run("concurrent creates store exactly one", func(t *testing.T) {
		f := newFixture(t)
		owner := uuid.New()

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded, duplicates := 0, 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p := &ticket{Record: payment.Record{OwnerID: owner, TargetRef: "race-R", PriceDue: decimal.NewFromInt(50)}}
				err := f.engine.Create(context.Background(), p)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, payment.ErrDuplicatePurchase):
					duplicates++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 19, duplicates)
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("resets payment fields to the initial state", func(t *testing.T) {
		f := newFixture(t)
		f.domain.policy = payment.Policy{Initial: payment.StatusCreated, Settable: payment.KnownStatuses}
		f.engine = payment.NewEngine[*ticket](f.domain, f.store, f.gateway)

		p := &ticket{Record: payment.Record{
			OwnerID:       uuid.New(),
			TargetRef:     "race-R",
			PriceDue:      decimal.NewFromInt(50),
			PaymentStatus: payment.StatusPaid,
			PollURL:       "forged",
		}}
		require.NoError(t, f.engine.Create(context.Background(), p))

		assert.NotEqual(t, uuid.Nil, p.ID)
		assert.Equal(t, payment.StatusCreated, f.status(t, p.ID))
		assert.Empty(t, p.PollURL)
	})

	t.Run("validates input", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		err := f.engine.Create(ctx, &ticket{Record: payment.Record{TargetRef: "race-R", PriceDue: decimal.NewFromInt(1)}})
		assert.ErrorIs(t, err, payment.ErrOwnerNotFound)

		err = f.engine.Create(ctx, &ticket{Record: payment.Record{OwnerID: uuid.New(), TargetRef: " ", PriceDue: decimal.NewFromInt(1)}})
		assert.ErrorIs(t, err, payment.ErrTargetNotFound)

		err = f.engine.Create(ctx, &ticket{Record: payment.Record{OwnerID: uuid.New(), TargetRef: "race-R"}})
		assert.ErrorIs(t, err, payment.ErrInvalidAmount)

		assert.Equal(t, 0, f.store.Len())
	})
}

func TestEngine_Initiate(t *testing.T) {
	t.Run("refuses paid purchase without calling the gateway", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.store.Modify(p.ID, func(r *payment.Record) { r.PaymentStatus = payment.StatusPaid })

		_, err := f.engine.Initiate(context.Background(), p.ID, "0771234567")

		assert.ErrorIs(t, err, payment.ErrAlreadyPaid)
		assert.Equal(t, payment.StatusPaid, f.status(t, p.ID))
		f.gateway.AssertNotCalled(t, "SubmitMobileMoneyPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("refuses cancelled purchase", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.store.Modify(p.ID, func(r *payment.Record) { r.PaymentStatus = payment.StatusCancelled })

		_, err := f.engine.Initiate(context.Background(), p.ID, "0771234567")

		assert.ErrorIs(t, err, payment.ErrPaymentCancelled)
		f.gateway.AssertNotCalled(t, "SubmitMobileMoneyPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejection marks failed and surfaces detail", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.expectPush("0771234567", &payment.PushResult{Success: false, Error: "insufficient funds"}, nil).Once()

		_, err := f.engine.Initiate(context.Background(), p.ID, "0771234567")

		require.ErrorIs(t, err, payment.ErrGatewayRejected)
		var rejected *payment.GatewayRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, "insufficient funds", rejected.Detail)

		stored, gerr := f.store.Get(context.Background(), p.ID)
		require.NoError(t, gerr)
		assert.Equal(t, payment.StatusFailed, stored.PaymentStatus)
		assert.NotEmpty(t, stored.InvoiceNumber)
		assert.Empty(t, stored.PollURL)
	})

	t.Run("failed purchase can be initiated again", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.expectPush("0771234567", &payment.PushResult{Success: false, Error: "insufficient funds"}, nil).Once()
		_, err := f.engine.Initiate(context.Background(), p.ID, "0771234567")
		require.Error(t, err)

		f.initiate(t, p.ID, "Y")
		assert.Equal(t, payment.StatusPending, f.status(t, p.ID))
	})

	t.Run("transport error marks failed", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.expectPush("0771234567", nil, errors.New("dial tcp: i/o timeout")).Once()

		_, err := f.engine.Initiate(context.Background(), p.ID, "0771234567")

		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
		assert.Equal(t, payment.StatusFailed, f.status(t, p.ID))
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.PaymentInitiationsTotal.WithLabelValues("ticket", "transport_error")))
	})

	t.Run("accepted push without poll url is a transport error", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.expectPush("0771234567", &payment.PushResult{Success: true}, nil).Once()

		_, err := f.engine.Initiate(context.Background(), p.ID, "0771234567")

		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
		assert.Equal(t, payment.StatusFailed, f.status(t, p.ID))
	})

	t.Run("requires a phone", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)

		_, err := f.engine.Initiate(context.Background(), p.ID, "   ")

		assert.ErrorIs(t, err, payment.ErrPhoneRequired)
		assert.Equal(t, payment.StatusUnpaid, f.status(t, p.ID))
	})

	t.Run("unknown purchase", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Initiate(context.Background(), uuid.New(), "0771234567")
		assert.ErrorIs(t, err, payment.ErrNotFound)
	})

	t.Run("invoice carries every line item and the full price", func(t *testing.T) {
		f := newFixture(t)
		f.domain.items = func(p *ticket) []payment.LineItem {
			return []payment.LineItem{
				{Description: "Trail shoes x2", Amount: decimal.RequireFromString("45.50")},
				{Description: "Delivery Fee", Amount: decimal.RequireFromString("4.50")},
			}
		}
		p := f.create(t, uuid.New(), "order-1", 50)

		f.gateway.On("SubmitMobileMoneyPush", mock.Anything, mock.MatchedBy(func(inv *payment.Invoice) bool {
			return len(inv.Items) == 2 &&
				inv.Total().Equal(decimal.NewFromInt(50)) &&
				inv.Domain == "ticket" &&
				inv.Payer == "runner@athlete.com"
		}), "0771234567", payment.MethodEcocash).Return(&payment.PushResult{Success: true, PollURL: "Z"}, nil).Once()

		_, err := f.engine.Initiate(context.Background(), p.ID, "0771234567")
		require.NoError(t, err)
		f.gateway.AssertExpectations(t)
	})

	t.Run("refuses invoice that does not match the price", func(t *testing.T) {
		f := newFixture(t)
		f.domain.items = func(p *ticket) []payment.LineItem {
			return []payment.LineItem{{Description: "Race entry", Amount: decimal.NewFromInt(49)}}
		}
		p := f.create(t, uuid.New(), "race-R", 50)

		_, err := f.engine.Initiate(context.Background(), p.ID, "0771234567")

		assert.ErrorIs(t, err, payment.ErrAmountMismatch)
		assert.Equal(t, payment.StatusUnpaid, f.status(t, p.ID))
		f.gateway.AssertNotCalled(t, "SubmitMobileMoneyPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("uses the configured wallet", func(t *testing.T) {
		f := newFixture(t, payment.WithMethod(payment.MethodOneMoney))
		p := f.create(t, uuid.New(), "race-R", 50)
		f.gateway.On("SubmitMobileMoneyPush", mock.Anything, mock.Anything, "0711111111", payment.MethodOneMoney).
			Return(&payment.PushResult{Success: true, PollURL: "W"}, nil).Once()

		_, err := f.engine.Initiate(context.Background(), p.ID, "0711111111")
		require.NoError(t, err)
		f.gateway.AssertExpectations(t)
	})

	t.Run("busy lock", func(t *testing.T) {
		f := newFixture(t, payment.WithLocker(busyLocker{}))
		p := &ticket{Record: payment.Record{ID: uuid.New(), OwnerID: uuid.New(), TargetRef: "race-R", PriceDue: decimal.NewFromInt(50), PaymentStatus: payment.StatusUnpaid}}
		f.store.Put(p)

		_, err := f.engine.Initiate(context.Background(), p.ID, "0771234567")
		assert.ErrorIs(t, err, payment.ErrResourceBusy)
	})
}

func TestEngine_Reconcile(t *testing.T) {
	t.Run("cancelled is terminal", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		p := f.create(t, uuid.New(), "race-R", 50)
		f.initiate(t, p.ID, "X")

		f.expectPoll("X", "Cancelled").Once()
		rec, err := f.engine.Reconcile(ctx, p.ID, "X")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCancelled, rec.Status)
		assert.Equal(t, "Payment was cancelled", rec.Message)

		rec, err = f.engine.Reconcile(ctx, p.ID, "X")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCancelled, rec.Status)
		assert.False(t, rec.Changed)

		rec, err = f.engine.ApplyGatewayStatus(ctx, "X", "Paid")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCancelled, rec.Status)

		assert.Equal(t, payment.StatusCancelled, f.status(t, p.ID))
		f.gateway.AssertNumberOfCalls(t, "PollTransaction", 1)
		assert.Equal(t, 0, countType(f.events.Types(), sharedevents.PaymentSucceededType))
	})

	t.Run("paid never moves", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		p := f.create(t, uuid.New(), "race-R", 50)
		f.initiate(t, p.ID, "X")
		f.expectPoll("X", "Paid").Once()
		_, err := f.engine.Reconcile(ctx, p.ID, "")
		require.NoError(t, err)

		for _, s := range payment.KnownStatuses {
			rec, err := f.engine.ApplyGatewayStatus(ctx, "X", string(s))
			require.NoError(t, err)
			assert.Equal(t, payment.StatusPaid, rec.Status)
		}
		_, err = f.engine.SetStatus(ctx, p.ID, payment.StatusUnpaid, "")
		assert.ErrorIs(t, err, payment.ErrInvalidTransition)

		assert.Equal(t, payment.StatusPaid, f.status(t, p.ID))
		assert.Equal(t, 1, countType(f.events.Types(), sharedevents.PaymentSucceededType))
	})

	t.Run("normalizes multi word tokens", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.initiate(t, p.ID, "X")
		f.expectPoll("X", "Awaiting Delivery").Once()

		rec, err := f.engine.Reconcile(context.Background(), p.ID, "")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusAwaitingDelivery, rec.Status)
		assert.Equal(t, "Payment confirmed, awaiting delivery", rec.Message)
	})

	t.Run("passes unknown tokens through", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		p := f.create(t, uuid.New(), "race-R", 50)
		f.initiate(t, p.ID, "X")

		f.expectPoll("X", "Disputed").Once()
		rec, err := f.engine.Reconcile(ctx, p.ID, "")
		require.NoError(t, err)
		assert.Equal(t, payment.Status("Disputed"), rec.Status)
		assert.Equal(t, payment.MessagePassThrough, rec.Message)
		assert.Equal(t, payment.Status("Disputed"), f.status(t, p.ID))

		f.expectPoll("X", "Paid").Once()
		rec, err = f.engine.Reconcile(ctx, p.ID, "")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPaid, rec.Status)
	})

	t.Run("unchanged status emits no transition", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		p := f.create(t, uuid.New(), "race-R", 50)
		f.initiate(t, p.ID, "X")
		f.expectPoll("X", "Sent").Twice()

		rec, err := f.engine.Reconcile(ctx, p.ID, "")
		require.NoError(t, err)
		assert.True(t, rec.Changed)

		rec, err = f.engine.Reconcile(ctx, p.ID, "")
		require.NoError(t, err)
		assert.False(t, rec.Changed)
		assert.Equal(t, payment.StatusSent, rec.Status)

		assert.Equal(t, 2, countType(f.events.Types(), sharedevents.PaymentStatusChangedType))
	})

	t.Run("transport error marks failed", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.initiate(t, p.ID, "X")
		f.gateway.On("PollTransaction", mock.Anything, "X").Return(nil, errors.New("connection reset")).Once()

		_, err := f.engine.Reconcile(context.Background(), p.ID, "")

		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
		assert.Equal(t, payment.StatusFailed, f.status(t, p.ID))
	})

	t.Run("empty gateway status is a transport error", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.initiate(t, p.ID, "X")
		f.expectPoll("X", "  ").Once()

		_, err := f.engine.Reconcile(context.Background(), p.ID, "")

		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
		assert.Equal(t, payment.StatusFailed, f.status(t, p.ID))
	})

	t.Run("failed purchase is polled again", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		p := f.create(t, uuid.New(), "race-R", 50)
		f.initiate(t, p.ID, "X")
		f.gateway.On("PollTransaction", mock.Anything, "X").Return(nil, errors.New("timeout")).Once()
		_, err := f.engine.Reconcile(ctx, p.ID, "")
		require.Error(t, err)

		f.expectPoll("X", "Paid").Once()
		rec, err := f.engine.Reconcile(ctx, p.ID, "")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPaid, rec.Status)
	})

	t.Run("rejects mismatched poll url", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.initiate(t, p.ID, "X")

		_, err := f.engine.Reconcile(context.Background(), p.ID, "https://evil.test/poll")

		assert.ErrorIs(t, err, payment.ErrPollHandleMismatch)
		assert.Equal(t, payment.StatusPending, f.status(t, p.ID))
		f.gateway.AssertNotCalled(t, "PollTransaction", mock.Anything, mock.Anything)
	})

	t.Run("requires an initiated payment", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)

		_, err := f.engine.Reconcile(context.Background(), p.ID, "")
		assert.ErrorIs(t, err, payment.ErrNoPollHandle)
	})

	t.Run("by handle", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		p := f.create(t, uuid.New(), "race-R", 50)
		f.initiate(t, p.ID, "X")
		f.expectPoll("X", "Paid").Once()

		rec, err := f.engine.ReconcileByHandle(ctx, "X")
		require.NoError(t, err)
		assert.Equal(t, p.ID, rec.ResourceID)
		assert.Equal(t, payment.StatusPaid, rec.Status)

		_, err = f.engine.ReconcileByHandle(ctx, "unknown")
		assert.ErrorIs(t, err, payment.ErrNotFound)

		_, err = f.engine.ReconcileByHandle(ctx, " ")
		assert.ErrorIs(t, err, payment.ErrNoPollHandle)
	})
}

func TestEngine_Reconcile_StatusTable(t *testing.T) {
	tests := []struct {
		token   string
		status  payment.Status
		message string
	}{
		{"Paid", payment.StatusPaid, "Payment successful"},
		{"Cancelled", payment.StatusCancelled, "Payment was cancelled"},
		{"Failed", payment.StatusFailed, "Payment failed"},
		{"Created", payment.StatusCreated, "Payment created but not yet sent"},
		{"Sent", payment.StatusSent, "Payment request sent to customer"},
		{"Awaiting Delivery", payment.StatusAwaitingDelivery, "Payment confirmed, awaiting delivery"},
		{"Awaiting Confirmation", payment.StatusAwaitingConfirmation, "Awaiting payment confirmation"},
		{"Unpaid", payment.StatusUnpaid, "Payment not yet made"},
		{"Pending", payment.StatusPending, "Payment is pending processing"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			f := newFixture(t)
			p := f.create(t, uuid.New(), "race-R", 50)
			f.initiate(t, p.ID, "X")
			f.expectPoll("X", tt.token).Once()

			rec, err := f.engine.Reconcile(context.Background(), p.ID, "")
			require.NoError(t, err)
			assert.Equal(t, tt.status, rec.Status)
			assert.Equal(t, tt.message, rec.Message)
			assert.Equal(t, tt.status != payment.StatusPending, rec.Changed)
			assert.Equal(t, tt.status, f.status(t, p.ID))
		})
	}
}

func TestEngine_ApplyGatewayStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, uuid.New(), "race-R", 50)
	f.initiate(t, p.ID, "X")

	_, err := f.engine.ApplyGatewayStatus(ctx, "X", "")
	assert.ErrorIs(t, err, payment.ErrGatewayTransport)

	rec, err := f.engine.ApplyGatewayStatus(ctx, "X", "Paid")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, rec.Status)
	assert.Equal(t, payment.ReasonCallback, f.store.Changes()[1].Reason)

	_, err = f.engine.ApplyGatewayStatus(ctx, "nope", "Paid")
	assert.ErrorIs(t, err, payment.ErrNotFound)
	f.gateway.AssertNotCalled(t, "PollTransaction", mock.Anything, mock.Anything)
}

func TestEngine_SetStatus(t *testing.T) {
	t.Run("sets status and poll url", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)

		snap, err := f.engine.SetStatus(context.Background(), p.ID, "Paid", "https://gateway.test/poll/1")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPaid, snap.PaymentStatus)
		assert.Equal(t, "https://gateway.test/poll/1", snap.PollURL)
		assert.Equal(t, "Payment successful", snap.Message)
		assert.Equal(t, payment.ReasonManual, f.store.Changes()[0].Reason)
		assert.Equal(t, 1, countType(f.events.Types(), sharedevents.PaymentSucceededType))
	})

	t.Run("honours the domain settable subset", func(t *testing.T) {
		f := newFixture(t)
		f.domain.policy = payment.Policy{
			Initial:  payment.StatusUnpaid,
			Settable: []payment.Status{payment.StatusPaid, payment.StatusCancelled},
		}
		f.engine = payment.NewEngine[*ticket](f.domain, f.store, f.gateway)
		p := f.create(t, uuid.New(), "race-R", 50)

		_, err := f.engine.SetStatus(context.Background(), p.ID, payment.StatusSent, "")
		assert.ErrorIs(t, err, payment.ErrStatusNotAllowed)

		_, err = f.engine.SetStatus(context.Background(), p.ID, "Disputed", "")
		assert.ErrorIs(t, err, payment.ErrStatusNotAllowed)

		_, err = f.engine.SetStatus(context.Background(), p.ID, payment.StatusCancelled, "")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCancelled, f.status(t, p.ID))
	})

	t.Run("retries once after a concurrent write", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)

		bumped := false
		f.store.UpdateHook = func(*ticket) error {
			if !bumped {
				bumped = true
				f.store.Modify(p.ID, nil)
			}
			return nil
		}

		_, err := f.engine.SetStatus(context.Background(), p.ID, payment.StatusSent, "")
		require.NoError(t, err)

		stored, err := f.store.Get(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusSent, stored.PaymentStatus)
		assert.Equal(t, int64(3), stored.Version)
	})

	t.Run("re-validates after reload", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)

		bumped := false
		f.store.UpdateHook = func(*ticket) error {
			if !bumped {
				bumped = true
				f.store.Modify(p.ID, func(r *payment.Record) { r.PaymentStatus = payment.StatusPaid })
			}
			return nil
		}

		_, err := f.engine.SetStatus(context.Background(), p.ID, payment.StatusSent, "")
		assert.ErrorIs(t, err, payment.ErrInvalidTransition)
		assert.Equal(t, payment.StatusPaid, f.status(t, p.ID))
	})

	t.Run("gives up on repeated conflicts", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, uuid.New(), "race-R", 50)
		f.store.UpdateHook = func(*ticket) error {
			f.store.Modify(p.ID, nil)
			return nil
		}

		_, err := f.engine.SetStatus(context.Background(), p.ID, payment.StatusSent, "")
		assert.ErrorIs(t, err, payment.ErrConcurrentUpdate)
	})
}

func TestEngine_Notifications(t *testing.T) {
	t.Run("notifier failure does not fail the operation", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.Err = errors.New("smtp: 550 mailbox unavailable")

		p := f.create(t, uuid.New(), "race-R", 50)
		_, err := f.engine.SetStatus(context.Background(), p.ID, payment.StatusPaid, "")

		require.NoError(t, err)
		assert.Len(t, f.notifier.Notices(), 2)
		assert.Equal(t, payment.StatusPaid, f.status(t, p.ID))
	})

	t.Run("notifier panic does not fail the operation", func(t *testing.T) {
		f := newFixture(t, payment.WithNotifier(panicNotifier{}))

		p := f.create(t, uuid.New(), "race-R", 50)
		_, err := f.engine.SetStatus(context.Background(), p.ID, payment.StatusPaid, "")

		require.NoError(t, err)
		assert.Equal(t, payment.StatusPaid, f.status(t, p.ID))
	})

	t.Run("payment notice is sent after the resource lock is released", func(t *testing.T) {
		var (
			f      *fixture
			id     uuid.UUID
			called bool
			inner  error
		)
		hook := hookNotifier{fn: func(ctx context.Context, notice payment.Notice) {
			if notice.Kind != payment.NoticePaymentSucceeded {
				return
			}
			called = true
			lctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
			defer cancel()
			_, inner = f.engine.Reconcile(lctx, id, "")
		}}
		f = newFixture(t, payment.WithNotifier(hook))
		p := f.create(t, uuid.New(), "race-R", 50)
		id = p.ID
		f.initiate(t, p.ID, "X")
		f.expectPoll("X", "Paid").Once()

		rec, err := f.engine.Reconcile(context.Background(), p.ID, "")

		require.NoError(t, err)
		assert.Equal(t, payment.StatusPaid, rec.Status)
		assert.True(t, called)
		assert.NoError(t, inner)
		f.gateway.AssertNumberOfCalls(t, "PollTransaction", 1)
	})

	t.Run("manual payment notice is sent after the resource lock is released", func(t *testing.T) {
		var (
			f     *fixture
			id    uuid.UUID
			inner error
		)
		hook := hookNotifier{fn: func(ctx context.Context, notice payment.Notice) {
			if notice.Kind != payment.NoticePaymentSucceeded {
				return
			}
			lctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
			defer cancel()
			_, inner = f.engine.SetStatus(lctx, id, payment.StatusPaid, "")
		}}
		f = newFixture(t, payment.WithNotifier(hook))
		p := f.create(t, uuid.New(), "race-R", 50)
		id = p.ID

		_, err := f.engine.SetStatus(context.Background(), p.ID, payment.StatusPaid, "")

		require.NoError(t, err)
		assert.NoError(t, inner)
	})

	t.Run("no recipient sends nothing", func(t *testing.T) {
		f := newFixture(t)
		p := &ticket{Record: payment.Record{OwnerID: uuid.New(), TargetRef: "race-R", PriceDue: decimal.NewFromInt(50)}}
		require.NoError(t, f.engine.Create(context.Background(), p))
		assert.Empty(t, f.notifier.Notices())
	})
}

func TestEngine_SerializesPerResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, uuid.New(), "race-R", 50)
	f.initiate(t, p.ID, "X")
	f.expectPoll("X", "Paid")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Reconcile(ctx, p.ID, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	f.gateway.AssertNumberOfCalls(t, "PollTransaction", 1)
	assert.Equal(t, 1, countType(f.events.Types(), sharedevents.PaymentSucceededType))
}

func TestEngine_Snapshot(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, uuid.New(), "race-R", 50)

	snap, err := f.engine.Snapshot(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.OwnerID, snap.OwnerID)
	assert.Equal(t, "race-R", snap.TargetRef)
	assert.True(t, snap.PriceDue.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "Payment not yet made", snap.Message)

	_, err = f.engine.Snapshot(context.Background(), uuid.New())
	assert.ErrorIs(t, err, payment.ErrNotFound)
}
