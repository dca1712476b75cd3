package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record holds the payment lifecycle fields shared by every purchasable resource.
// Domain models embed it; its columns live in each domain's own table.
type Record struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID       uuid.UUID       `json:"owner_id" gorm:"type:uuid;not null;index"`
	TargetRef     string          `json:"target_ref" gorm:"not null"`
	PriceDue      decimal.Decimal `json:"price_due" gorm:"type:numeric(12,2);not null"`
	PaymentStatus Status          `json:"payment_status" gorm:"not null"`
	PollURL       string          `json:"poll_url,omitempty" gorm:"column:poll_url"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	ContactEmail  string          `json:"contact_email,omitempty"`
	Version       int64           `json:"-" gorm:"not null;default:1"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PaymentRecord returns the record itself. Embedding types inherit it and
// thereby satisfy Purchasable.
func (r *Record) PaymentRecord() *Record {
	return r
}

// Purchasable is implemented by pointers to types embedding Record.
type Purchasable interface {
	PaymentRecord() *Record
}

// Snapshot is a read-only view of a record's payment state.
type Snapshot struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	TargetRef     string          `json:"target_ref"`
	PriceDue      decimal.Decimal `json:"price_due"`
	PaymentStatus Status          `json:"payment_status"`
	Message       string          `json:"message"`
	PollURL       string          `json:"poll_url,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Snapshot copies the payment state of r.
func (r *Record) Snapshot() *Snapshot {
	return &Snapshot{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		TargetRef:     r.TargetRef,
		PriceDue:      r.PriceDue,
		PaymentStatus: r.PaymentStatus,
		Message:       MessageFor(r.PaymentStatus),
		PollURL:       r.PollURL,
		InvoiceNumber: r.InvoiceNumber,
		UpdatedAt:     r.UpdatedAt,
	}
}
