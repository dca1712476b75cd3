package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/sportsclub/server/internal/infra/events"
)

// Store persists one domain's purchase records.
type Store[P Purchasable] interface {
	// Create inserts p. A violation of the active (owner, target) unique
	// index is reported as ErrDuplicatePurchase.
	Create(ctx context.Context, p P) error
	// Get loads a record by id or returns ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (P, error)
	// FindActive returns the non-cancelled record for (owner, target) or ErrNotFound.
	FindActive(ctx context.Context, owner uuid.UUID, target string) (P, error)
	// FindByPollURL returns the record holding pollURL or ErrNotFound.
	FindByPollURL(ctx context.Context, pollURL string) (P, error)
	// UpdatePayment writes the payment fields of p if the stored version still
	// equals p's version, then bumps the version on p. A lost race is
	// reported as ErrConcurrentUpdate.
	UpdatePayment(ctx context.Context, p P, change StatusChange) error
}

// StatusChange describes a persisted payment status transition.
type StatusChange struct {
	Domain     string    `json:"domain"`
	ResourceID uuid.UUID `json:"resource_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Reason     string    `json:"reason"`
	Invoice    string    `json:"invoice_number,omitempty"`
}

// Transition reasons.
const (
	ReasonInitiate  = "initiate"
	ReasonReconcile = "reconcile"
	ReasonCallback  = "callback"
	ReasonManual    = "manual"
)

// Locker serializes work on a key across processes.
type Locker interface {
	// Lock blocks until the key is held, ctx is done, or the wait budget
	// runs out. The returned function releases the lock.
	Lock(ctx context.Context, key string) (func(), error)
}

// NoticeKind names the lifecycle moment a notification is sent for.
type NoticeKind string

const (
	NoticePurchaseCreated  NoticeKind = "purchase_created"
	NoticePaymentSucceeded NoticeKind = "payment_succeeded"
)

// Notice is a rendered-on-send notification request.
type Notice struct {
	Kind      NoticeKind
	Domain    string
	Recipient string
	Subject   string
	// Template names the body template; Data is passed to it.
	Template string
	Data     map[string]any
}

// Notifier delivers notices. Errors are logged by the engine and never returned.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event events.Event)
}

// Domain adapts one kind of purchasable resource to the engine.
type Domain[P Purchasable] interface {
	// Name identifies the domain in lock keys, events, metrics and callbacks.
	Name() string
	Policy() Policy
	// Payer returns the payer identifier put on the invoice.
	Payer(p P) string
	// LineItems returns the invoice entries for p. They must sum to PriceDue.
	LineItems(p P) []LineItem
	// Notice builds the notification for kind, or returns false to send nothing.
	Notice(kind NoticeKind, p P) (Notice, bool)
}
