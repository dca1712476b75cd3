package payment

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// MobileMethod identifies the mobile money wallet used for a push.
type MobileMethod string

const (
	MethodEcocash  MobileMethod = "ecocash"
	MethodOneMoney MobileMethod = "onemoney"
)

// LineItem is one priced entry on an invoice.
type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Invoice is the gateway-side description of one payment attempt.
type Invoice struct {
	Number string
	// Payer identifies the customer to the gateway, usually an email address.
	Payer string
	// Domain names the purchase domain, used to route gateway callbacks.
	Domain string
	Items  []LineItem
}

// AddLineItem appends an entry to the invoice.
func (inv *Invoice) AddLineItem(description string, amount decimal.Decimal) {
	inv.Items = append(inv.Items, LineItem{Description: description, Amount: amount})
}

// Total returns the sum of all line items.
func (inv *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range inv.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// PushResult is the gateway's answer to a mobile money push.
type PushResult struct {
	Success      bool
	PollURL      string
	Instructions string
	Reference    string
	// Error holds the gateway's explanation when Success is false.
	Error string
}

// PollResult is the gateway's answer to a status poll.
type PollResult struct {
	// Status is the raw gateway status token, e.g. "Paid" or "Awaiting Delivery".
	Status    string
	Reference string
	Amount    decimal.Decimal
	PollURL   string
}

// Gateway is the mobile money payment gateway.
//
// SubmitMobileMoneyPush and PollTransaction return an error only for
// transport failures (timeouts, unreachable host, malformed or unsigned
// responses). A push the gateway declines is reported as a PushResult
// with Success false.
type Gateway interface {
	CreateInvoice(number, payer string) *Invoice
	SubmitMobileMoneyPush(ctx context.Context, invoice *Invoice, phone string, method MobileMethod) (*PushResult, error)
	PollTransaction(ctx context.Context, pollURL string) (*PollResult, error)
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewInvoiceNumber returns a fresh, lexically sortable invoice number.
func NewInvoiceNumber() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return "INV-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
