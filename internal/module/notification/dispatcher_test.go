package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/metrics"
)

type message struct {
	to, subject, body string
}

type recordingSender struct {
	name string
	err  error
	wait bool

	mu   sync.Mutex
	sent []message
}

func (s *recordingSender) Name() string { return s.name }

func (s *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	if s.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, message{to: to, subject: subject, body: body})
	return s.err
}

func registrationNotice() payment.Notice {
	return payment.Notice{
		Kind:      payment.NoticePurchaseCreated,
		Domain:    "registration",
		Recipient: "runner@example.com",
		Subject:   "Race Registration Confirmation - City Marathon",
		Template:  "registration_created",
		Data: map[string]any{
			"Name":               "Rudo Chikomo",
			"RegistrationNumber": "MPR0123456789",
			"RaceName":           "City Marathon",
			"RaceEvent":          "10km",
			"Amount":             "25.00",
		},
	}
}

func TestDispatcher_Render(t *testing.T) {
	d := NewDispatcher(nil)

	t.Run("registration", func(t *testing.T) {
		body, err := d.Render("registration_created", registrationNotice().Data)
		require.NoError(t, err)
		assert.Contains(t, body, "MPR0123456789")
		assert.Contains(t, body, "Hi Rudo Chikomo,")
		assert.Contains(t, body, "$25.00")
	})

	t.Run("purchase lists lines", func(t *testing.T) {
		body, err := d.Render("purchase_created", map[string]any{
			"Item":   "Shop order with 2 products",
			"Amount": "39.50",
			"Lines": []payment.LineItem{
				{Description: "Club Shirt (M, Red) x2", Amount: decimal.RequireFromString("30")},
				{Description: "Delivery Fee", Amount: decimal.RequireFromString("5")},
			},
			"ShippingAddress": "Harare",
		})
		require.NoError(t, err)
		assert.Contains(t, body, "Club Shirt (M, Red) x2: $30.00")
		assert.Contains(t, body, "Delivery Fee: $5.00")
		assert.Contains(t, body, "Harare")
	})

	t.Run("payment succeeded falls back to race name", func(t *testing.T) {
		body, err := d.Render("payment_succeeded", map[string]any{
			"RaceName":      "City Marathon",
			"Amount":        "25.00",
			"InvoiceNumber": "INV-1",
		})
		require.NoError(t, err)
		assert.Contains(t, body, "for City Marathon was successful")
		assert.Contains(t, body, "INV-1")
	})

	t.Run("escapes input", func(t *testing.T) {
		body, err := d.Render("purchase_created", map[string]any{"Item": "<script>x</script>", "Amount": "1.00"})
		require.NoError(t, err)
		assert.NotContains(t, body, "<script>")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := d.Render("welcome", nil)
		assert.ErrorIs(t, err, ErrUnknownTemplate)
		_, err = d.Render("header", nil)
		assert.ErrorIs(t, err, ErrUnknownTemplate)
	})
}

func TestDispatcher_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out to every sender", func(t *testing.T) {
		m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
		email := &recordingSender{name: "smtp"}
		queue := &recordingSender{name: "amqp"}
		d := NewDispatcher([]Sender{email, queue}, WithMetrics(m))

		require.NoError(t, d.Notify(ctx, registrationNotice()))
		require.Len(t, email.sent, 1)
		require.Len(t, queue.sent, 1)
		assert.Equal(t, "runner@example.com", email.sent[0].to)
		assert.Equal(t, "Race Registration Confirmation - City Marathon", email.sent[0].subject)
		assert.Equal(t, email.sent[0].body, queue.sent[0].body)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("smtp", "sent")))
	})

	t.Run("one failure does not stop the others", func(t *testing.T) {
		m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
		broken := &recordingSender{name: "smtp", err: errors.New("connection refused")}
		queue := &recordingSender{name: "amqp"}
		d := NewDispatcher([]Sender{broken, queue}, WithMetrics(m))

		err := d.Notify(ctx, registrationNotice())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Len(t, queue.sent, 1)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("smtp", "failed")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("amqp", "sent")))
	})

	t.Run("send timeout", func(t *testing.T) {
		slow := &recordingSender{name: "smtp", wait: true}
		d := NewDispatcher([]Sender{slow}, WithTimeout(10*time.Millisecond))

		err := d.Notify(ctx, registrationNotice())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("unknown template sends nothing", func(t *testing.T) {
		email := &recordingSender{name: "smtp"}
		d := NewDispatcher([]Sender{email})

		notice := registrationNotice()
		notice.Template = "missing"
		assert.ErrorIs(t, d.Notify(ctx, notice), ErrUnknownTemplate)
		assert.Empty(t, email.sent)
	})
}
