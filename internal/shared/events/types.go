package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sportsclub/server/internal/infra/events"
)

// Payment event types.
const (
	PurchaseCreatedType      = "purchase.created"
	PaymentStatusChangedType = "payment.status_changed"
	PaymentSucceededType     = "payment.succeeded"
)

// PurchaseCreatedEvent is emitted after a purchase record is stored.
type PurchaseCreatedEvent struct {
	events.BaseEvent

	OwnerID   uuid.UUID       `json:"owner_id"`
	TargetRef string          `json:"target_ref"`
	PriceDue  decimal.Decimal `json:"price_due"`
	Status    string          `json:"status"`
}

// NewPurchaseCreatedEvent creates a new PurchaseCreatedEvent.
func NewPurchaseCreatedEvent(domain string, id, owner uuid.UUID, target string, price decimal.Decimal, status string) *PurchaseCreatedEvent {
	return &PurchaseCreatedEvent{
		BaseEvent: events.NewBaseEvent(PurchaseCreatedType, id, domain),
		OwnerID:   owner,
		TargetRef: target,
		PriceDue:  price,
		Status:    status,
	}
}

// PaymentStatusChangedEvent is emitted after every persisted status transition.
type PaymentStatusChangedEvent struct {
	events.BaseEvent

	OwnerID       uuid.UUID `json:"owner_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	Reason        string    `json:"reason"` // initiate, reconcile, callback, manual
}

// NewPaymentStatusChangedEvent creates a new PaymentStatusChangedEvent.
func NewPaymentStatusChangedEvent(domain string, id, owner uuid.UUID, from, to, invoice, reason string) *PaymentStatusChangedEvent {
	return &PaymentStatusChangedEvent{
		BaseEvent:     events.NewBaseEvent(PaymentStatusChangedType, id, domain),
		OwnerID:       owner,
		From:          from,
		To:            to,
		InvoiceNumber: invoice,
		Reason:        reason,
	}
}

// PaymentSucceededEvent is emitted when a record first reaches paid.
type PaymentSucceededEvent struct {
	events.BaseEvent

	OwnerID       uuid.UUID       `json:"owner_id"`
	TargetRef     string          `json:"target_ref"`
	Amount        decimal.Decimal `json:"amount"`
	InvoiceNumber string          `json:"invoice_number"`
}

// NewPaymentSucceededEvent creates a new PaymentSucceededEvent.
func NewPaymentSucceededEvent(domain string, id, owner uuid.UUID, target string, amount decimal.Decimal, invoice string) *PaymentSucceededEvent {
	return &PaymentSucceededEvent{
		BaseEvent:     events.NewBaseEvent(PaymentSucceededType, id, domain),
		OwnerID:       owner,
		TargetRef:     target,
		Amount:        amount,
		InvoiceNumber: invoice,
	}
}
