// Package paymenttest provides in-memory doubles for the payment engine's
// dependencies, for use in tests of the payment package and its domains.
package paymenttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sportsclub/server/internal/infra/events"
	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// Store is an in-memory payment.Store. It enforces the active
// (owner, target) uniqueness and the version check like the gorm store.
type Store[T any, P interface {
	*T
	payment.Purchasable
}] struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]T
	order   []uuid.UUID
	changes []payment.StatusChange

	// UpdateHook runs before every UpdatePayment; a non-nil error is returned as is.
	UpdateHook func(p P) error
}

// NewStore creates an empty store.
func NewStore[T any, P interface {
	*T
	payment.Purchasable
}]() *Store[T, P] {
	return &Store[T, P]{rows: make(map[uuid.UUID]T)}
}

// Create implements payment.Store.
func (s *Store[T, P]) Create(_ context.Context, p P) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := p.PaymentRecord()
	for _, row := range s.rows {
		other := P(&row).PaymentRecord()
		if other.OwnerID == rec.OwnerID && other.TargetRef == rec.TargetRef && other.PaymentStatus != payment.StatusCancelled {
			return payment.ErrDuplicatePurchase
		}
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.rows[rec.ID] = *(*T)(p)
	s.order = append(s.order, rec.ID)
	return nil
}

// Get implements payment.Store.
func (s *Store[T, P]) Get(_ context.Context, id uuid.UUID) (P, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyOf(id)
}

// FindActive implements payment.Store.
func (s *Store[T, P]) FindActive(_ context.Context, owner uuid.UUID, target string) (P, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		row := s.rows[s.order[i]]
		rec := P(&row).PaymentRecord()
		if rec.OwnerID == owner && rec.TargetRef == target && rec.PaymentStatus != payment.StatusCancelled {
			return s.copyOf(rec.ID)
		}
	}
	return nil, payment.ErrNotFound
}

// FindByPollURL implements payment.Store.
func (s *Store[T, P]) FindByPollURL(_ context.Context, pollURL string) (P, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		row := s.rows[id]
		if P(&row).PaymentRecord().PollURL == pollURL {
			return s.copyOf(id)
		}
	}
	return nil, payment.ErrNotFound
}

// UpdatePayment implements payment.Store.
func (s *Store[T, P]) UpdatePayment(_ context.Context, p P, change payment.StatusChange) error {
	if s.UpdateHook != nil {
		if err := s.UpdateHook(p); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := p.PaymentRecord()
	current, ok := s.rows[rec.ID]
	if !ok {
		return payment.ErrNotFound
	}
	if P(&current).PaymentRecord().Version != rec.Version {
		return payment.ErrConcurrentUpdate
	}

	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	s.rows[rec.ID] = *(*T)(p)
	s.changes = append(s.changes, change)
	return nil
}

// ListByOwner returns one page of the owner's records, newest first.
func (s *Store[T, P]) ListByOwner(_ context.Context, owner uuid.UUID, page *pagination.Pagination) ([]P, int64, error) {
	if page == nil {
		page = pagination.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var owned []P
	for i := len(s.order) - 1; i >= 0; i-- {
		row := s.rows[s.order[i]]
		if P(&row).PaymentRecord().OwnerID == owner {
			cp := row
			owned = append(owned, P(&cp))
		}
	}
	total := int64(len(owned))
	start := page.Offset()
	if start >= len(owned) {
		return []P{}, total, nil
	}
	end := min(start+page.Limit(), len(owned))
	return owned[start:end], total, nil
}

// Find returns a copy of the first record, in insertion order, for which match is true.
func (s *Store[T, P]) Find(match func(P) bool) (P, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		row := s.rows[id]
		if match(P(&row)) {
			return s.copyOf(id)
		}
	}
	return nil, payment.ErrNotFound
}

// UpdateColumns stores the domain fields of p. The stored payment fields
// are kept, so a stale p cannot roll back a status.
func (s *Store[T, P]) UpdateColumns(_ context.Context, p P, _ ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := p.PaymentRecord()
	current, ok := s.rows[rec.ID]
	if !ok {
		return payment.ErrNotFound
	}
	stored := *P(&current).PaymentRecord()
	stored.UpdatedAt = time.Now().UTC()

	row := *(*T)(p)
	*P(&row).PaymentRecord() = stored
	s.rows[rec.ID] = row
	rec.UpdatedAt = stored.UpdatedAt
	return nil
}

// Put stores p as is, bypassing all checks. Use it to seed fixtures.
func (s *Store[T, P]) Put(p P) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := p.PaymentRecord()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	if _, ok := s.rows[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.rows[rec.ID] = *(*T)(p)
}

// Modify applies fn to the stored row and bumps its version, as a
// concurrent writer would.
func (s *Store[T, P]) Modify(id uuid.UUID, fn func(*payment.Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return
	}
	rec := P(&row).PaymentRecord()
	if fn != nil {
		fn(rec)
	}
	rec.Version++
	s.rows[id] = row
}

// Len returns the number of stored records.
func (s *Store[T, P]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Changes returns every status change written so far.
func (s *Store[T, P]) Changes() []payment.StatusChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]payment.StatusChange(nil), s.changes...)
}

func (s *Store[T, P]) copyOf(id uuid.UUID) (P, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	cp := row
	return P(&cp), nil
}

// Gateway is a scriptable payment.Gateway.
type Gateway struct {
	mu sync.Mutex

	// PushFunc answers SubmitMobileMoneyPush. The default accepts every push
	// and returns a poll url derived from the invoice number.
	PushFunc func(ctx context.Context, invoice *payment.Invoice, phone string, method payment.MobileMethod) (*payment.PushResult, error)
	// PollFunc answers PollTransaction. The default reports the status set
	// with SetStatus, or "Sent".
	PollFunc func(ctx context.Context, pollURL string) (*payment.PollResult, error)

	statuses map[string]string
	pushes   []*payment.Invoice
	phones   []string
	polls    []string
}

// NewGateway creates a gateway that accepts every push.
func NewGateway() *Gateway {
	return &Gateway{statuses: make(map[string]string)}
}

// PollURLFor returns the poll url the default push answer uses for invoice.
func PollURLFor(invoiceNumber string) string {
	return "https://gateway.test/poll/" + invoiceNumber
}

// CreateInvoice implements payment.Gateway.
func (g *Gateway) CreateInvoice(number, payer string) *payment.Invoice {
	return &payment.Invoice{Number: number, Payer: payer}
}

// SubmitMobileMoneyPush implements payment.Gateway.
func (g *Gateway) SubmitMobileMoneyPush(ctx context.Context, invoice *payment.Invoice, phone string, method payment.MobileMethod) (*payment.PushResult, error) {
	g.mu.Lock()
	g.pushes = append(g.pushes, invoice)
	g.phones = append(g.phones, phone)
	fn := g.PushFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, invoice, phone, method)
	}
	return &payment.PushResult{
		Success:      true,
		PollURL:      PollURLFor(invoice.Number),
		Instructions: fmt.Sprintf("Dial *151# to approve %s", invoice.Total().StringFixed(2)),
	}, nil
}

// PollTransaction implements payment.Gateway.
func (g *Gateway) PollTransaction(ctx context.Context, pollURL string) (*payment.PollResult, error) {
	g.mu.Lock()
	g.polls = append(g.polls, pollURL)
	fn := g.PollFunc
	status, ok := g.statuses[pollURL]
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, pollURL)
	}
	if !ok {
		status = "Sent"
	}
	return &payment.PollResult{Status: status, PollURL: pollURL}, nil
}

// SetStatus makes the default poll answer report status for pollURL.
func (g *Gateway) SetStatus(pollURL, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[pollURL] = status
}

// Pushes returns the invoices pushed so far.
func (g *Gateway) Pushes() []*payment.Invoice {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*payment.Invoice(nil), g.pushes...)
}

// Phones returns the phone numbers pushed to so far.
func (g *Gateway) Phones() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.phones...)
}

// Polls returns the poll urls queried so far.
func (g *Gateway) Polls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.polls...)
}

// Notifier records notices. Err, when set, is returned from every call.
type Notifier struct {
	mu      sync.Mutex
	notices []payment.Notice
	Err     error
}

// Notify implements payment.Notifier.
func (n *Notifier) Notify(_ context.Context, notice payment.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return n.Err
}

// Notices returns the notices received so far.
func (n *Notifier) Notices() []payment.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]payment.Notice(nil), n.notices...)
}

// Events records published events.
type Events struct {
	mu     sync.Mutex
	events []events.Event
}

// Publish implements payment.EventPublisher.
func (r *Events) Publish(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Types returns the types of the published events in order.
func (r *Events) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.EventType()
	}
	return types
}

// All returns the published events.
func (r *Events) All() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}
