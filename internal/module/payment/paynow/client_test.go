package paynow

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/shared/config"
	"github.com/sportsclub/server/internal/utils/metrics"
)

type fakePaynow struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	requests []fields
	hits     int32

	initiate func(req fields) fields
	poll     func() fields
	status   int
	delay    time.Duration
}

func newFakePaynow(t *testing.T) *fakePaynow {
	f := &fakePaynow{t: t, status: http.StatusOK}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePaynow) serve(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&f.hits, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-r.Context().Done():
			return
		}
	}
	if f.status != http.StatusOK {
		w.WriteHeader(f.status)
		return
	}

	body, _ := io.ReadAll(r.Body)
	var resp fields
	switch r.URL.Path {
	case "/interface/remotetransaction":
		req, err := parseFields(string(body))
		require.NoError(f.t, err)
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()
		resp = f.initiate(req)
	case "/interface/poll":
		resp = f.poll()
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_, _ = io.WriteString(w, resp.Encode())
}

func (f *fakePaynow) pollURL() string {
	return f.srv.URL + "/interface/poll?guid=abc-123"
}

func (f *fakePaynow) lastRequest() fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakePaynow, m *metrics.Metrics) *Client {
	t.Helper()
	c, err := New(config.PaynowConfig{
		IntegrationID:   "1201",
		IntegrationKey:  testKey,
		InitiateURL:     fake.srv.URL + "/interface/remotetransaction",
		ReturnURL:       "https://club.test/return",
		ResultURL:       "https://club.test/api/v1/payments/paynow/result/",
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}, fake.srv.Client(), m, nil)
	require.NoError(t, err)
	return c
}

func testInvoice() *payment.Invoice {
	inv := &payment.Invoice{Number: "INV-01J9Z", Payer: "MPR0123456789@athlete.com", Domain: "registration"}
	inv.AddLineItem("Race entry", decimal.RequireFromString("45.00"))
	inv.AddLineItem("T-shirt", decimal.RequireFromString("5.00"))
	return inv
}

func acceptPush(fake *fakePaynow) func(fields) fields {
	return func(req fields) fields {
		return fields{
			{"status", "Ok"},
			{"instructions", "Dial *151*2*4# to approve"},
			{"paynowreference", "987654"},
			{"pollurl", fake.pollURL()},
		}.Signed(testKey)
	}
}

func TestClient_SubmitMobileMoneyPush(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		fake := newFakePaynow(t)
		fake.initiate = acceptPush(fake)
		m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
		c := newTestClient(t, fake, m)

		res, err := c.SubmitMobileMoneyPush(context.Background(), testInvoice(), "0771234567", payment.MethodEcocash)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, fake.pollURL(), res.PollURL)
		assert.Equal(t, "987654", res.Reference)
		assert.Equal(t, "Dial *151*2*4# to approve", res.Instructions)

		req := fake.lastRequest()
		require.NoError(t, req.Verify(testKey))
		assert.Equal(t, "1201", req.Get("id"))
		assert.Equal(t, "INV-01J9Z", req.Get("reference"))
		assert.Equal(t, "50.00", req.Get("amount"))
		assert.Equal(t, "Race entry, T-shirt", req.Get("additionalinfo"))
		assert.Equal(t, "https://club.test/api/v1/payments/paynow/result/registration", req.Get("resulturl"))
		assert.Equal(t, "MPR0123456789@athlete.com", req.Get("authemail"))
		assert.Equal(t, "0771234567", req.Get("phone"))
		assert.Equal(t, "ecocash", req.Get("method"))
		assert.Equal(t, "Message", req.Get("status"))

		assert.Equal(t, float64(1), testutil.ToFloat64(m.GatewayRequestsTotal.WithLabelValues(opPush, "ok")))
	})

	t.Run("declined", func(t *testing.T) {
		fake := newFakePaynow(t)
		fake.initiate = func(fields) fields {
			return fields{{"status", "Error"}, {"error", "Insufficient balance"}}
		}
		c := newTestClient(t, fake, nil)

		res, err := c.SubmitMobileMoneyPush(context.Background(), testInvoice(), "0771234567", payment.MethodEcocash)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Insufficient balance", res.Error)
	})

	t.Run("unsigned ok is a transport error", func(t *testing.T) {
		fake := newFakePaynow(t)
		fake.initiate = func(fields) fields {
			return fields{{"status", "Ok"}, {"pollurl", fake.pollURL()}, {"hash", "BOGUS"}}
		}
		c := newTestClient(t, fake, nil)

		_, err := c.SubmitMobileMoneyPush(context.Background(), testInvoice(), "0771234567", payment.MethodEcocash)
		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
	})

	t.Run("http error is a transport error", func(t *testing.T) {
		fake := newFakePaynow(t)
		fake.status = http.StatusInternalServerError
		c := newTestClient(t, fake, nil)

		_, err := c.SubmitMobileMoneyPush(context.Background(), testInvoice(), "0771234567", payment.MethodEcocash)
		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
	})

	t.Run("context deadline is a transport error", func(t *testing.T) {
		fake := newFakePaynow(t)
		fake.delay = time.Second
		fake.initiate = acceptPush(fake)
		c := newTestClient(t, fake, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := c.SubmitMobileMoneyPush(ctx, testInvoice(), "0771234567", payment.MethodEcocash)
		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
	})

	t.Run("empty invoice", func(t *testing.T) {
		fake := newFakePaynow(t)
		c := newTestClient(t, fake, nil)

		_, err := c.SubmitMobileMoneyPush(context.Background(), &payment.Invoice{Number: "INV-1"}, "0771234567", payment.MethodEcocash)
		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
		assert.Equal(t, int32(0), atomic.LoadInt32(&fake.hits))
	})
}

func TestClient_PollTransaction(t *testing.T) {
	t.Run("returns raw status", func(t *testing.T) {
		fake := newFakePaynow(t)
		fake.poll = func() fields {
			return fields{
				{"reference", "INV-01J9Z"},
				{"paynowreference", "987654"},
				{"amount", "50.00"},
				{"status", "Awaiting Delivery"},
				{"pollurl", fake.pollURL()},
			}.Signed(testKey)
		}
		c := newTestClient(t, fake, nil)

		res, err := c.PollTransaction(context.Background(), fake.pollURL())
		require.NoError(t, err)
		assert.Equal(t, "Awaiting Delivery", res.Status)
		assert.Equal(t, "987654", res.Reference)
		assert.True(t, res.Amount.Equal(decimal.NewFromInt(50)))
	})

	t.Run("refuses foreign hosts", func(t *testing.T) {
		fake := newFakePaynow(t)
		c := newTestClient(t, fake, nil)

		_, err := c.PollTransaction(context.Background(), "http://169.254.169.254/latest/meta-data")
		assert.ErrorIs(t, err, payment.ErrGatewayTransport)

		_, err = c.PollTransaction(context.Background(), "not a url")
		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
		assert.Equal(t, int32(0), atomic.LoadInt32(&fake.hits))
	})

	t.Run("tampered response", func(t *testing.T) {
		fake := newFakePaynow(t)
		fake.poll = func() fields {
			f := fields{{"status", "Cancelled"}, {"pollurl", fake.pollURL()}}.Signed(testKey)
			f[0].Value = "Paid"
			return f
		}
		c := newTestClient(t, fake, nil)

		_, err := c.PollTransaction(context.Background(), fake.pollURL())
		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
	})

	t.Run("error status", func(t *testing.T) {
		fake := newFakePaynow(t)
		fake.poll = func() fields {
			return fields{{"status", "Error"}, {"error", "Invalid Id."}}
		}
		c := newTestClient(t, fake, nil)

		_, err := c.PollTransaction(context.Background(), fake.pollURL())
		assert.ErrorIs(t, err, payment.ErrGatewayTransport)
	})
}

func TestClient_CircuitBreaker(t *testing.T) {
	fake := newFakePaynow(t)
	fake.status = http.StatusServiceUnavailable
	m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
	c := newTestClient(t, fake, m)

	for i := 0; i < 2; i++ {
		_, err := c.PollTransaction(context.Background(), fake.pollURL())
		require.ErrorIs(t, err, payment.ErrGatewayTransport)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.hits))

	_, err := c.PollTransaction(context.Background(), fake.pollURL())
	assert.ErrorIs(t, err, payment.ErrGatewayTransport)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GatewayRequestsTotal.WithLabelValues(opPoll, "circuit_open")))
}

func TestClient_ParseStatusUpdate(t *testing.T) {
	fake := newFakePaynow(t)
	c := newTestClient(t, fake, nil)

	body := fields{
		{"reference", "INV-01J9Z"},
		{"paynowreference", "987654"},
		{"amount", "50.00"},
		{"status", "Paid"},
		{"pollurl", fake.pollURL()},
	}.Signed(testKey).Encode()

	res, err := c.ParseStatusUpdate(body)
	require.NoError(t, err)
	assert.Equal(t, "Paid", res.Status)
	assert.Equal(t, fake.pollURL(), res.PollURL)

	_, err = c.ParseStatusUpdate(fields{{"status", "Paid"}, {"pollurl", fake.pollURL()}, {"hash", "X"}}.Encode())
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = c.ParseStatusUpdate(fields{{"status", "Paid"}}.Signed(testKey).Encode())
	assert.ErrorIs(t, err, ErrMalformedFields)
}

func TestNew(t *testing.T) {
	_, err := New(config.PaynowConfig{InitiateURL: "https://www.paynow.co.zw/interface/remotetransaction"}, nil, nil, nil)
	assert.Error(t, err)

	_, err = New(config.PaynowConfig{IntegrationID: "1", IntegrationKey: "k", InitiateURL: "::"}, nil, nil, nil)
	assert.Error(t, err)

	c, err := New(config.PaynowConfig{IntegrationID: "1", IntegrationKey: "k", InitiateURL: "https://www.paynow.co.zw/interface/remotetransaction"}, nil, nil, nil)
	require.NoError(t, err)
	inv := c.CreateInvoice("INV-1", "a@b.c")
	assert.Equal(t, "INV-1", inv.Number)
	assert.Equal(t, "a@b.c", inv.Payer)
}
