package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
// All Record* methods are safe to call on a nil *Metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Payment lifecycle metrics
	PurchasesCreatedTotal   *prometheus.CounterVec
	DuplicatePurchasesTotal *prometheus.CounterVec
	PaymentInitiationsTotal *prometheus.CounterVec
	ReconciliationsTotal    *prometheus.CounterVec
	StatusTransitionsTotal  *prometheus.CounterVec

	// Gateway metrics
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec

	// Notification metrics
	NotificationsTotal *prometheus.CounterVec

	// Outbox metrics
	OutboxPublishedTotal prometheus.Counter
	OutboxFailuresTotal  prometheus.Counter
	OutboxBatchDuration  prometheus.Histogram
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance registered on reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "sportsclub"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		// Payment lifecycle metrics
		PurchasesCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "purchases_created_total",
				Help:      "Total number of purchase records created",
			},
			[]string{"domain"},
		),
		DuplicatePurchasesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "duplicate_purchases_total",
				Help:      "Total number of rejected duplicate purchases",
			},
			[]string{"domain"},
		),
		PaymentInitiationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "initiations_total",
				Help:      "Total number of mobile money initiations",
			},
			[]string{"domain", "result"}, // result: accepted, rejected, transport_error
		),
		ReconciliationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "reconciliations_total",
				Help:      "Total number of payment reconciliations",
			},
			[]string{"domain", "result"}, // result: updated, unchanged, terminal, stale, transport_error
		),
		StatusTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "status_transitions_total",
				Help:      "Total number of persisted payment status transitions",
			},
			[]string{"domain", "from", "to"},
		),

		// Gateway metrics
		GatewayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of payment gateway requests",
			},
			[]string{"operation", "status"},
		),
		GatewayRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Payment gateway request duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"operation"},
		),

		// Notification metrics
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notification",
				Name:      "sent_total",
				Help:      "Total number of notification attempts",
			},
			[]string{"channel", "status"}, // status: sent, failed
		),

		// Outbox metrics
		OutboxPublishedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "outbox",
				Name:      "published_total",
				Help:      "Total number of outbox messages published",
			},
		),
		OutboxFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "outbox",
				Name:      "failures_total",
				Help:      "Total number of failed outbox batches",
			},
		),
		OutboxBatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "outbox",
				Name:      "batch_duration_seconds",
				Help:      "Outbox batch processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// --- Convenience methods ---

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCodeToString(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPurchaseCreated records a new purchase record.
func (m *Metrics) RecordPurchaseCreated(domain string) {
	if m == nil {
		return
	}
	m.PurchasesCreatedTotal.WithLabelValues(domain).Inc()
}

// RecordDuplicatePurchase records a rejected duplicate purchase.
func (m *Metrics) RecordDuplicatePurchase(domain string) {
	if m == nil {
		return
	}
	m.DuplicatePurchasesTotal.WithLabelValues(domain).Inc()
}

// RecordInitiation records the outcome of a payment initiation.
func (m *Metrics) RecordInitiation(domain, result string) {
	if m == nil {
		return
	}
	m.PaymentInitiationsTotal.WithLabelValues(domain, result).Inc()
}

// RecordReconciliation records the outcome of a reconciliation.
func (m *Metrics) RecordReconciliation(domain, result string) {
	if m == nil {
		return
	}
	m.ReconciliationsTotal.WithLabelValues(domain, result).Inc()
}

// RecordTransition records a persisted status transition.
func (m *Metrics) RecordTransition(domain, from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitionsTotal.WithLabelValues(domain, from, to).Inc()
}

// RecordGatewayRequest records a gateway round trip.
func (m *Metrics) RecordGatewayRequest(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequestsTotal.WithLabelValues(operation, status).Inc()
	m.GatewayRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordNotification records a notification attempt.
func (m *Metrics) RecordNotification(channel string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// RecordOutboxBatch records a processed outbox batch.
func (m *Metrics) RecordOutboxBatch(published int, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if err != nil {
		m.OutboxFailuresTotal.Inc()
	}
	if published > 0 {
		m.OutboxPublishedTotal.Add(float64(published))
	}
	m.OutboxBatchDuration.Observe(duration.Seconds())
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
