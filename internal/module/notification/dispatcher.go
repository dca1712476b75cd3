package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/metrics"
)

// DefaultTimeout bounds each send.
const DefaultTimeout = 10 * time.Second

// ErrUnknownTemplate is returned for notices naming no known template.
var ErrUnknownTemplate = errors.New("unknown notification template")

// Dispatcher renders notices and fans them out to every sender.
// It implements payment.Notifier.
type Dispatcher struct {
	templates *template.Template
	senders   []Sender
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets the per-send timeout.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithMetrics records every send attempt.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher over senders.
func NewDispatcher(senders []Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		templates: template.Must(template.New("notification").Parse(
			layoutTemplate + registrationCreatedTemplate + purchaseCreatedTemplate + paymentSucceededTemplate,
		)),
		senders: senders,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Render executes the named template with data.
func (d *Dispatcher) Render(name string, data map[string]any) (string, error) {
	t := d.templates.Lookup(name)
	if t == nil || name == "header" || name == "footer" {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Notify implements payment.Notifier. Every sender is tried; the returned
// error joins the individual failures.
func (d *Dispatcher) Notify(ctx context.Context, notice payment.Notice) error {
	body, err := d.Render(notice.Template, notice.Data)
	if err != nil {
		return err
	}

	var errs []error
	for _, s := range d.senders {
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := s.Send(sctx, notice.Recipient, notice.Subject, body)
		cancel()

		d.metrics.RecordNotification(s.Name(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		d.logger.Debug("notification sent",
			zap.String("channel", s.Name()),
			zap.String("domain", notice.Domain),
			zap.String("kind", string(notice.Kind)),
		)
	}
	return errors.Join(errs...)
}

var _ payment.Notifier = (*Dispatcher)(nil)
