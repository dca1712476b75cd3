package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportsclub/server/internal/infra/events"
	sharedevents "github.com/sportsclub/server/internal/shared/events"
	"github.com/sportsclub/server/internal/utils/metrics"
)

// failureWriteTimeout bounds the write that marks a record failed after the
// caller's context may already be gone.
const failureWriteTimeout = 5 * time.Second

// Initiation is the outcome of an accepted payment push.
type Initiation struct {
	ResourceID    uuid.UUID `json:"id"`
	Status        Status    `json:"payment_status"`
	PollURL       string    `json:"poll_url"`
	InvoiceNumber string    `json:"invoice_number"`
	Instructions  string    `json:"instructions,omitempty"`
}

// Reconciliation is the outcome of a status check.
type Reconciliation struct {
	ResourceID uuid.UUID `json:"id"`
	Status     Status    `json:"status"`
	Message    string    `json:"message"`
	PollURL    string    `json:"poll_url"`
	// Changed reports whether the stored status moved.
	Changed bool `json:"changed"`
}

// Engine runs the payment lifecycle of one domain: create, initiate, reconcile.
type Engine[P Purchasable] struct {
	domain   Domain[P]
	store    Store[P]
	gateway  Gateway
	guard    *Guard[P]
	machine  *StateMachine
	locker   Locker
	notifier Notifier
	events   EventPublisher
	metrics  *metrics.Metrics
	method   MobileMethod
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	locker   Locker
	notifier Notifier
	events   EventPublisher
	metrics  *metrics.Metrics
	method   MobileMethod
	timeout  time.Duration
	logger   *zap.Logger
}

// WithLocker sets the per-resource locker. Defaults to a LocalLocker.
func WithLocker(l Locker) Option { return func(o *options) { o.locker = l } }

// WithNotifier sets the notifier used after creation and payment success.
func WithNotifier(n Notifier) Option { return func(o *options) { o.notifier = n } }

// WithEventPublisher sets the domain event publisher.
func WithEventPublisher(p EventPublisher) Option { return func(o *options) { o.events = p } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option { return func(o *options) { o.metrics = m } }

// WithMethod sets the mobile money wallet used for pushes. Defaults to ecocash.
func WithMethod(m MobileMethod) Option { return func(o *options) { o.method = m } }

// WithGatewayTimeout bounds every gateway call.
func WithGatewayTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// NewEngine creates the payment engine for domain.
func NewEngine[P Purchasable](domain Domain[P], store Store[P], gateway Gateway, opts ...Option) *Engine[P] {
	o := options{method: MethodEcocash}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locker == nil {
		o.locker = NewLocalLocker()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	return &Engine[P]{
		domain:   domain,
		store:    store,
		gateway:  gateway,
		guard:    NewGuard(store),
		machine:  NewStateMachine(domain.Policy()),
		locker:   o.locker,
		notifier: o.notifier,
		events:   o.events,
		metrics:  o.metrics,
		method:   o.method,
		timeout:  o.timeout,
		logger:   o.logger.With(zap.String("domain", domain.Name())),
	}
}

// Name returns the domain name.
func (e *Engine[P]) Name() string {
	return e.domain.Name()
}

// Policy returns the domain's state machine policy.
func (e *Engine[P]) Policy() Policy {
	return e.machine.Policy()
}

// Create stores a new purchase after checking that the owner holds no
// other active purchase of the same target. Status, poll url and version
// are reset; PriceDue must already hold the catalog price.
func (e *Engine[P]) Create(ctx context.Context, p P) error {
	rec := p.PaymentRecord()
	if rec.OwnerID == uuid.Nil {
		return ErrOwnerNotFound
	}
	if strings.TrimSpace(rec.TargetRef) == "" {
		return ErrTargetNotFound
	}
	if !rec.PriceDue.IsPositive() {
		return ErrInvalidAmount
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.PaymentStatus = e.machine.Policy().Initial
	rec.PollURL = ""
	rec.InvoiceNumber = ""
	rec.Version = 1

	if err := e.insert(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicatePurchase) {
			e.metrics.RecordDuplicatePurchase(e.Name())
		}
		return err
	}

	e.metrics.RecordPurchaseCreated(e.Name())
	e.logger.Info("purchase created",
		zap.String("id", rec.ID.String()),
		zap.String("owner_id", rec.OwnerID.String()),
		zap.String("target_ref", rec.TargetRef),
		zap.String("price_due", rec.PriceDue.StringFixed(2)),
	)

	e.publish(sharedevents.NewPurchaseCreatedEvent(
		e.Name(), rec.ID, rec.OwnerID, rec.TargetRef, rec.PriceDue, string(rec.PaymentStatus),
	))
	e.notify(ctx, NoticePurchaseCreated, p)
	return nil
}

func (e *Engine[P]) insert(ctx context.Context, p P) error {
	rec := p.PaymentRecord()
	unlock, err := e.lock(ctx, e.guardKey(rec.OwnerID, rec.TargetRef))
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.guard.Ensure(ctx, rec.OwnerID, rec.TargetRef); err != nil {
		return err
	}
	return e.store.Create(ctx, p)
}

// Get loads a record by id.
func (e *Engine[P]) Get(ctx context.Context, id uuid.UUID) (P, error) {
	return e.store.Get(ctx, id)
}

// Snapshot returns the payment state of a record.
func (e *Engine[P]) Snapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	p, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.PaymentRecord().Snapshot(), nil
}

// SnapshotByHandle returns the payment state of the record holding pollURL.
func (e *Engine[P]) SnapshotByHandle(ctx context.Context, pollURL string) (*Snapshot, error) {
	pollURL = strings.TrimSpace(pollURL)
	if pollURL == "" {
		return nil, ErrNoPollHandle
	}
	p, err := e.store.FindByPollURL(ctx, pollURL)
	if err != nil {
		return nil, err
	}
	return p.PaymentRecord().Snapshot(), nil
}

// Initiate sends a mobile money push for the record's full price.
//
// Paid and cancelled records are refused without contacting the gateway.
// A declined push marks the record failed and returns *GatewayRejectedError.
// A transport failure marks the record failed and returns an error wrapping
// ErrGatewayTransport. Failed records may be initiated again.
func (e *Engine[P]) Initiate(ctx context.Context, id uuid.UUID, phone string) (*Initiation, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrPhoneRequired
	}

	unlock, err := e.lock(ctx, e.resourceKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rec := p.PaymentRecord()

	switch {
	case rec.PaymentStatus.IsPaid():
		return nil, ErrAlreadyPaid
	case rec.PaymentStatus == StatusCancelled:
		return nil, ErrPaymentCancelled
	case !e.machine.CanInitiate(rec.PaymentStatus):
		return nil, fmt.Errorf("%w: cannot initiate from %s", ErrInvalidTransition, rec.PaymentStatus)
	}

	invoice := e.gateway.CreateInvoice(NewInvoiceNumber(), e.domain.Payer(p))
	invoice.Domain = e.Name()
	for _, item := range e.domain.LineItems(p) {
		invoice.AddLineItem(item.Description, item.Amount)
	}
	if total := invoice.Total(); !total.Equal(rec.PriceDue) {
		e.logger.Error("invoice total does not match price due",
			zap.String("id", rec.ID.String()),
			zap.String("invoice_total", total.StringFixed(2)),
			zap.String("price_due", rec.PriceDue.StringFixed(2)),
		)
		return nil, fmt.Errorf("%w: invoice %s, due %s", ErrAmountMismatch, total.StringFixed(2), rec.PriceDue.StringFixed(2))
	}

	gctx, cancel := e.gatewayContext(ctx)
	result, err := e.gateway.SubmitMobileMoneyPush(gctx, invoice, phone, e.method)
	cancel()

	if err == nil && result.Success && result.PollURL == "" {
		err = errors.New("accepted push without poll url")
	}
	if err != nil {
		e.metrics.RecordInitiation(e.Name(), "transport_error")
		e.logger.Error("mobile money push failed",
			zap.String("id", rec.ID.String()),
			zap.String("invoice_number", invoice.Number),
			zap.Error(err),
		)
		e.markFailed(ctx, p, invoice.Number, ReasonInitiate)
		return nil, transportError("submit mobile money push", err)
	}

	if !result.Success {
		e.metrics.RecordInitiation(e.Name(), "rejected")
		e.logger.Warn("mobile money push rejected",
			zap.String("id", rec.ID.String()),
			zap.String("invoice_number", invoice.Number),
			zap.String("detail", result.Error),
		)
		e.markFailed(ctx, p, invoice.Number, ReasonInitiate)
		return nil, &GatewayRejectedError{Detail: result.Error}
	}

	p, _, err = e.transition(ctx, p, StatusPending, ReasonInitiate, func(r *Record) {
		r.PollURL = result.PollURL
		r.InvoiceNumber = invoice.Number
	})
	if err != nil {
		e.logger.Error("store accepted push",
			zap.String("id", rec.ID.String()),
			zap.String("invoice_number", invoice.Number),
			zap.String("poll_url", result.PollURL),
			zap.Error(err),
		)
		return nil, fmt.Errorf("store initiation: %w", err)
	}

	e.metrics.RecordInitiation(e.Name(), "accepted")
	rec = p.PaymentRecord()
	return &Initiation{
		ResourceID:    rec.ID,
		Status:        rec.PaymentStatus,
		PollURL:       rec.PollURL,
		InvoiceNumber: rec.InvoiceNumber,
		Instructions:  result.Instructions,
	}, nil
}

// Reconcile polls the gateway for the record's payment and stores the
// mapped status. pollURL, when given, must equal the stored poll url.
// Terminal records are answered from storage without a gateway call.
func (e *Engine[P]) Reconcile(ctx context.Context, id uuid.UUID, pollURL string) (*Reconciliation, error) {
	result, announce, err := e.reconcileLocked(ctx, id, strings.TrimSpace(pollURL))
	if announce != nil {
		announce()
	}
	return result, err
}

func (e *Engine[P]) reconcileLocked(ctx context.Context, id uuid.UUID, handle string) (*Reconciliation, func(), error) {
	unlock, err := e.lock(ctx, e.resourceKey(id))
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return e.reconcile(ctx, p, handle)
}

// ReconcileByHandle reconciles the record that holds pollURL.
func (e *Engine[P]) ReconcileByHandle(ctx context.Context, pollURL string) (*Reconciliation, error) {
	pollURL = strings.TrimSpace(pollURL)
	if pollURL == "" {
		return nil, ErrNoPollHandle
	}
	p, err := e.store.FindByPollURL(ctx, pollURL)
	if err != nil {
		return nil, err
	}
	return e.Reconcile(ctx, p.PaymentRecord().ID, pollURL)
}

// ApplyGatewayStatus stores a status pushed by the gateway for pollURL,
// through the same mapping and terminal guard as Reconcile.
func (e *Engine[P]) ApplyGatewayStatus(ctx context.Context, pollURL, token string) (*Reconciliation, error) {
	pollURL = strings.TrimSpace(pollURL)
	if pollURL == "" {
		return nil, ErrNoPollHandle
	}
	found, err := e.store.FindByPollURL(ctx, pollURL)
	if err != nil {
		return nil, err
	}

	result, announce, err := e.applyLocked(ctx, found.PaymentRecord().ID, pollURL, token)
	if announce != nil {
		announce()
	}
	return result, err
}

func (e *Engine[P]) applyLocked(ctx context.Context, id uuid.UUID, pollURL, token string) (*Reconciliation, func(), error) {
	unlock, err := e.lock(ctx, e.resourceKey(id))
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if p.PaymentRecord().PollURL != pollURL {
		return nil, nil, ErrPollHandleMismatch
	}
	if p.PaymentRecord().PaymentStatus.IsTerminal() {
		e.metrics.RecordReconciliation(e.Name(), "terminal")
		return stored(p), nil, nil
	}
	if strings.TrimSpace(token) == "" {
		return nil, nil, fmt.Errorf("%w: empty gateway status", ErrGatewayTransport)
	}
	return e.apply(ctx, p, token, ReasonCallback)
}

// SetStatus sets a status by hand. The status must be in the domain's
// settable subset and reachable from the stored status.
func (e *Engine[P]) SetStatus(ctx context.Context, id uuid.UUID, status Status, pollURL string) (*Snapshot, error) {
	status = Status(NormalizeToken(string(status)))
	if !e.machine.Policy().AllowsManual(status) {
		return nil, fmt.Errorf("%w: %s", ErrStatusNotAllowed, status)
	}

	snap, announce, err := e.setStatusLocked(ctx, id, status, strings.TrimSpace(pollURL))
	if err != nil {
		return nil, err
	}
	if announce != nil {
		announce()
	}
	return snap, nil
}

func (e *Engine[P]) setStatusLocked(ctx context.Context, id uuid.UUID, status Status, pollURL string) (*Snapshot, func(), error) {
	unlock, err := e.lock(ctx, e.resourceKey(id))
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	p, change, err := e.transition(ctx, p, status, ReasonManual, func(r *Record) {
		if pollURL != "" {
			r.PollURL = pollURL
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return p.PaymentRecord().Snapshot(), e.announcer(ctx, p, change), nil
}

// reconcile polls the gateway for p. The returned func, when not nil,
// announces a new payment and must be called after the lock is released.
func (e *Engine[P]) reconcile(ctx context.Context, p P, handle string) (*Reconciliation, func(), error) {
	rec := p.PaymentRecord()
	if rec.PollURL == "" {
		return nil, nil, ErrNoPollHandle
	}
	if handle != "" && handle != rec.PollURL {
		return nil, nil, ErrPollHandleMismatch
	}
	if rec.PaymentStatus.IsTerminal() {
		e.metrics.RecordReconciliation(e.Name(), "terminal")
		return stored(p), nil, nil
	}

	gctx, cancel := e.gatewayContext(ctx)
	polled, err := e.gateway.PollTransaction(gctx, rec.PollURL)
	cancel()

	if err == nil && strings.TrimSpace(polled.Status) == "" {
		err = errors.New("empty gateway status")
	}
	if err != nil {
		e.metrics.RecordReconciliation(e.Name(), "transport_error")
		e.logger.Error("poll transaction failed",
			zap.String("id", rec.ID.String()),
			zap.String("poll_url", rec.PollURL),
			zap.Error(err),
		)
		e.markFailed(ctx, p, "", ReasonReconcile)
		return nil, nil, transportError("poll transaction", err)
	}

	return e.apply(ctx, p, polled.Status, ReasonReconcile)
}

// apply stores the translation of token unless the record is terminal.
func (e *Engine[P]) apply(ctx context.Context, p P, token, reason string) (*Reconciliation, func(), error) {
	tr := Translate(token)

	p, change, err := e.transition(ctx, p, tr.Status, reason, nil)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) && p.PaymentRecord().PaymentStatus.IsTerminal() {
			e.metrics.RecordReconciliation(e.Name(), "stale")
			e.logger.Info("ignored gateway status for terminal payment",
				zap.String("id", p.PaymentRecord().ID.String()),
				zap.String("stored", string(p.PaymentRecord().PaymentStatus)),
				zap.String("reported", token),
			)
			return stored(p), nil, nil
		}
		return nil, nil, err
	}

	result := "unchanged"
	if change.From != change.To {
		result = "updated"
	}
	e.metrics.RecordReconciliation(e.Name(), result)

	return &Reconciliation{
		ResourceID: p.PaymentRecord().ID,
		Status:     tr.Status,
		Message:    tr.Message,
		PollURL:    p.PaymentRecord().PollURL,
		Changed:    change.From != change.To,
	}, e.announcer(ctx, p, change), nil
}

// transition writes status `to` with a version check. On a lost race it
// reloads once and re-validates before giving up with ErrConcurrentUpdate.
// The returned P is the latest state known, also on error.
func (e *Engine[P]) transition(ctx context.Context, p P, to Status, reason string, mutate func(*Record)) (P, StatusChange, error) {
	for attempt := 0; ; attempt++ {
		rec := p.PaymentRecord()
		change := StatusChange{
			Domain:     e.Name(),
			ResourceID: rec.ID,
			OwnerID:    rec.OwnerID,
			From:       rec.PaymentStatus,
			To:         to,
			Reason:     reason,
		}
		before := *rec
		if err := e.machine.Transition(rec, to); err != nil {
			return p, change, err
		}
		if mutate != nil {
			mutate(rec)
		}
		change.Invoice = rec.InvoiceNumber

		err := e.store.UpdatePayment(ctx, p, change)
		if err == nil {
			if change.From != change.To {
				e.metrics.RecordTransition(e.Name(), string(change.From), string(change.To))
				e.publish(sharedevents.NewPaymentStatusChangedEvent(
					e.Name(), rec.ID, rec.OwnerID, string(change.From), string(change.To), rec.InvoiceNumber, reason,
				))
				e.logger.Info("payment status changed",
					zap.String("id", rec.ID.String()),
					zap.String("from", string(change.From)),
					zap.String("to", string(change.To)),
					zap.String("reason", reason),
				)
			}
			return p, change, nil
		}

		*rec = before
		if !errors.Is(err, ErrConcurrentUpdate) || attempt > 0 {
			return p, change, err
		}

		fresh, gerr := e.store.Get(ctx, rec.ID)
		if gerr != nil {
			return p, change, gerr
		}
		p = fresh
	}
}

// markFailed applies the transport and rejection failure policy. It uses a
// context detached from the caller so the write survives a client timeout.
func (e *Engine[P]) markFailed(ctx context.Context, p P, invoice, reason string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()

	_, _, err := e.transition(wctx, p, StatusFailed, reason, func(r *Record) {
		if invoice != "" {
			r.InvoiceNumber = invoice
		}
	})
	if err != nil && !errors.Is(err, ErrInvalidTransition) {
		e.logger.Error("mark payment failed",
			zap.String("id", p.PaymentRecord().ID.String()),
			zap.Error(err),
		)
	}
}

// announcer returns the announcement for change when it records a new
// payment, or nil. The notifier may block on a mail server, so it runs
// outside the resource lock.
func (e *Engine[P]) announcer(ctx context.Context, p P, change StatusChange) func() {
	if !change.To.IsPaid() || change.From.IsPaid() {
		return nil
	}
	return func() { e.paymentSucceeded(ctx, p) }
}

func (e *Engine[P]) paymentSucceeded(ctx context.Context, p P) {
	rec := p.PaymentRecord()
	e.publish(sharedevents.NewPaymentSucceededEvent(
		e.Name(), rec.ID, rec.OwnerID, rec.TargetRef, rec.PriceDue, rec.InvoiceNumber,
	))
	e.notify(ctx, NoticePaymentSucceeded, p)
}

// notify sends a best-effort notification. Failures are logged only.
func (e *Engine[P]) notify(ctx context.Context, kind NoticeKind, p P) {
	if e.notifier == nil {
		return
	}
	notice, ok := e.domain.Notice(kind, p)
	if !ok || notice.Recipient == "" {
		return
	}
	notice.Kind = kind
	notice.Domain = e.Name()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("notifier panic", zap.Any("panic", r), zap.String("kind", string(kind)))
		}
	}()
	if err := e.notifier.Notify(ctx, notice); err != nil {
		e.logger.Warn("notification failed",
			zap.String("id", p.PaymentRecord().ID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func (e *Engine[P]) publish(event events.Event) {
	if e.events == nil {
		return
	}
	e.events.Publish(event)
}

func (e *Engine[P]) lock(ctx context.Context, key string) (func(), error) {
	unlock, err := e.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceBusy, err)
	}
	return unlock, nil
}

func (e *Engine[P]) resourceKey(id uuid.UUID) string {
	return "payment:" + e.Name() + ":" + id.String()
}

func (e *Engine[P]) guardKey(owner uuid.UUID, target string) string {
	return "purchase:" + e.Name() + ":" + owner.String() + ":" + target
}

func (e *Engine[P]) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

func stored[P Purchasable](p P) *Reconciliation {
	rec := p.PaymentRecord()
	return &Reconciliation{
		ResourceID: rec.ID,
		Status:     rec.PaymentStatus,
		Message:    MessageFor(rec.PaymentStatus),
		PollURL:    rec.PollURL,
	}
}
