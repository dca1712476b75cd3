// Package paynow implements payment.Gateway against the Paynow remote
// transaction interface (EcoCash and OneMoney express checkout).
package paynow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/shared/config"
	"github.com/sportsclub/server/internal/utils/metrics"
)

const (
	opPush = "mobile_push"
	opPoll = "poll"

	maxResponseBytes = 64 << 10
)

// Client is the Paynow gateway client. It is safe for concurrent use.
type Client struct {
	cfg     config.PaynowConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[fields]
	metrics *metrics.Metrics
	logger  *zap.Logger
	host    string
}

var _ payment.Gateway = (*Client)(nil)

// New creates a Paynow client. Poll urls are only followed when they point
// at the same host as cfg.InitiateURL.
func New(cfg config.PaynowConfig, httpClient *http.Client, m *metrics.Metrics, logger *zap.Logger) (*Client, error) {
	if cfg.IntegrationID == "" || cfg.IntegrationKey == "" {
		return nil, errors.New("paynow: integration id and key are required")
	}
	u, err := url.Parse(cfg.InitiateURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("paynow: invalid initiate url %q", cfg.InitiateURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c := &Client{
		cfg:     cfg,
		http:    httpClient,
		metrics: m,
		logger:  logger.With(zap.String("gateway", "paynow")),
		host:    strings.ToLower(u.Host),
	}
	c.breaker = gobreaker.NewCircuitBreaker[fields](gobreaker.Settings{
		Name:        "paynow",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c, nil
}

// CreateInvoice starts a new invoice for payer.
func (c *Client) CreateInvoice(number, payer string) *payment.Invoice {
	return &payment.Invoice{Number: number, Payer: payer}
}

// SubmitMobileMoneyPush sends an express checkout request to the payer's wallet.
func (c *Client) SubmitMobileMoneyPush(ctx context.Context, invoice *payment.Invoice, phone string, method payment.MobileMethod) (*payment.PushResult, error) {
	if invoice == nil || len(invoice.Items) == 0 {
		return nil, fmt.Errorf("%w: invoice has no items", payment.ErrGatewayTransport)
	}

	req := fields{
		{"id", c.cfg.IntegrationID},
		{"reference", invoice.Number},
		{"amount", invoice.Total().StringFixed(2)},
		{"additionalinfo", describe(invoice)},
		{"returnurl", c.cfg.ReturnURL},
		{"resulturl", c.resultURL(invoice.Domain)},
		{"authemail", invoice.Payer},
		{"phone", phone},
		{"method", string(method)},
		{"status", "Message"},
	}.Signed(c.cfg.IntegrationKey)

	resp, err := c.call(ctx, opPush, c.cfg.InitiateURL, req)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(resp.Get("status")) {
	case statusOk:
		if err := resp.Verify(c.cfg.IntegrationKey); err != nil {
			return nil, fmt.Errorf("%w: %v", payment.ErrGatewayTransport, err)
		}
		return &payment.PushResult{
			Success:      true,
			PollURL:      resp.Get("pollurl"),
			Instructions: resp.Get("instructions"),
			Reference:    resp.Get("paynowreference"),
		}, nil
	case statusError:
		c.logger.Info("mobile push declined",
			zap.String("reference", invoice.Number),
			zap.String("error", resp.Get("error")),
		)
		return &payment.PushResult{Success: false, Error: resp.Get("error")}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected status %q", payment.ErrGatewayTransport, resp.Get("status"))
	}
}

// PollTransaction fetches the current status of a transaction.
func (c *Client) PollTransaction(ctx context.Context, pollURL string) (*payment.PollResult, error) {
	if err := c.checkPollURL(pollURL); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, opPoll, pollURL, nil)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(resp.Get("status"), statusError) {
		return nil, fmt.Errorf("%w: poll error: %s", payment.ErrGatewayTransport, resp.Get("error"))
	}
	if err := resp.Verify(c.cfg.IntegrationKey); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayTransport, err)
	}
	return toPollResult(resp), nil
}

// ParseStatusUpdate verifies a status update posted to the result url and
// returns it as a poll result.
func (c *Client) ParseStatusUpdate(body string) (*payment.PollResult, error) {
	f, err := parseFields(body)
	if err != nil {
		return nil, err
	}
	if err := f.Verify(c.cfg.IntegrationKey); err != nil {
		return nil, err
	}
	if f.Get("pollurl") == "" || f.Get("status") == "" {
		return nil, fmt.Errorf("%w: pollurl and status are required", ErrMalformedFields)
	}
	return toPollResult(f), nil
}

// call posts form to target through the circuit breaker. Every error it
// returns wraps payment.ErrGatewayTransport.
func (c *Client) call(ctx context.Context, op, target string, form fields) (fields, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (fields, error) {
		return c.post(ctx, target, form)
	})
	status := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "circuit_open"
	case err != nil:
		status = "error"
	}
	c.metrics.RecordGatewayRequest(op, status, time.Since(start))

	if err != nil {
		c.logger.Warn("paynow request failed", zap.String("operation", op), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", payment.ErrGatewayTransport, op, err)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, target string, form fields) (fields, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected http status %d", res.StatusCode)
	}
	return parseFields(string(body))
}

func (c *Client) checkPollURL(pollURL string) error {
	u, err := url.Parse(pollURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: invalid poll url", payment.ErrGatewayTransport)
	}
	if !strings.EqualFold(u.Host, c.host) {
		return fmt.Errorf("%w: poll url host %s is not the gateway", payment.ErrGatewayTransport, u.Host)
	}
	return nil
}

func (c *Client) resultURL(domain string) string {
	if c.cfg.ResultURL == "" || domain == "" {
		return c.cfg.ResultURL
	}
	return strings.TrimRight(c.cfg.ResultURL, "/") + "/" + domain
}

func describe(invoice *payment.Invoice) string {
	names := make([]string, len(invoice.Items))
	for i, item := range invoice.Items {
		names[i] = item.Description
	}
	return strings.Join(names, ", ")
}

func toPollResult(f fields) *payment.PollResult {
	amount, _ := decimal.NewFromString(f.Get("amount"))
	return &payment.PollResult{
		Status:    f.Get("status"),
		Reference: f.Get("paynowreference"),
		Amount:    amount,
		PollURL:   f.Get("pollurl"),
	}
}
