package payment

import "strings"

// Status is the payment status stored on every purchase record.
// Values reported by the gateway outside the known set are stored verbatim.
type Status string

const (
	StatusUnpaid               Status = "unpaid"
	StatusCreated              Status = "created"
	StatusSent                 Status = "sent"
	StatusPending              Status = "pending"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusAwaitingDelivery     Status = "awaiting_delivery"
	StatusPaid                 Status = "paid"
	StatusCancelled            Status = "cancelled"
	StatusFailed               Status = "failed"

	// StatusCompleted is a gateway success token outside the mapping table.
	// It passes through verbatim but is treated as paid.
	StatusCompleted Status = "completed"
)

// KnownStatuses lists every status with a fixed meaning, in lifecycle order.
var KnownStatuses = []Status{
	StatusUnpaid,
	StatusCreated,
	StatusSent,
	StatusPending,
	StatusAwaitingConfirmation,
	StatusAwaitingDelivery,
	StatusPaid,
	StatusCancelled,
	StatusFailed,
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s Status) IsTerminal() bool {
	return s.IsPaid() || s == StatusCancelled
}

// IsPaid reports whether s records a successful payment.
func (s Status) IsPaid() bool {
	return s == StatusPaid || Status(NormalizeToken(string(s))) == StatusCompleted
}

// IsKnown reports whether s is one of KnownStatuses.
func (s Status) IsKnown() bool {
	_, ok := statusMessages[s]
	return ok
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// MessagePassThrough is returned for gateway tokens outside the known set.
const MessagePassThrough = "Payment status retrieved"

var statusMessages = map[Status]string{
	StatusPaid:                 "Payment successful",
	StatusCancelled:            "Payment was cancelled",
	StatusFailed:               "Payment failed",
	StatusCreated:              "Payment created but not yet sent",
	StatusSent:                 "Payment request sent to customer",
	StatusAwaitingDelivery:     "Payment confirmed, awaiting delivery",
	StatusAwaitingConfirmation: "Awaiting payment confirmation",
	StatusUnpaid:               "Payment not yet made",
	StatusPending:              "Payment is pending processing",
}

// Translation is the local interpretation of a gateway status token.
type Translation struct {
	Status  Status
	Message string
}

// NormalizeToken lower-cases a gateway status token and replaces spaces
// with underscores, so "Awaiting Delivery" becomes "awaiting_delivery".
func NormalizeToken(token string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(token)), " ", "_")
}

// Translate maps a raw gateway status token to a local status and message.
// Unknown tokens are passed through verbatim.
func Translate(token string) Translation {
	status := Status(NormalizeToken(token))
	if msg, ok := statusMessages[status]; ok {
		return Translation{Status: status, Message: msg}
	}
	return Translation{Status: Status(strings.TrimSpace(token)), Message: MessagePassThrough}
}

// MessageFor returns the human readable message for a stored status.
func MessageFor(s Status) string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return MessagePassThrough
}
