package membership

import (
	"strings"

	"github.com/sportsclub/server/internal/module/payment"
)

// DomainName identifies memberships to the payment engine.
const DomainName = "membership"

// Target is the target reference of every membership: a member holds at
// most one non-cancelled membership.
const Target = "club-membership"

// Policy starts memberships pending and allows every status but created to be set by hand.
var Policy = payment.Policy{
	Initial: payment.StatusPending,
	Settable: []payment.Status{
		payment.StatusPaid,
		payment.StatusPending,
		payment.StatusFailed,
		payment.StatusUnpaid,
		payment.StatusCancelled,
		payment.StatusSent,
		payment.StatusAwaitingDelivery,
		payment.StatusAwaitingConfirmation,
	},
}

type purchaseDomain struct{}

func (purchaseDomain) Name() string { return DomainName }

func (purchaseDomain) Policy() payment.Policy { return Policy }

func (purchaseDomain) Payer(m *Membership) string {
	return m.ID.String() + "@member.com"
}

func (purchaseDomain) LineItems(m *Membership) []payment.LineItem {
	return []payment.LineItem{{Description: label(m.MembershipType) + " membership fee", Amount: m.PriceDue}}
}

func (purchaseDomain) Notice(kind payment.NoticeKind, m *Membership) (payment.Notice, bool) {
	data := map[string]any{
		"Item":   label(m.MembershipType) + " membership",
		"Amount": m.PriceDue.StringFixed(2),
	}
	switch kind {
	case payment.NoticePurchaseCreated:
		return payment.Notice{
			Recipient: m.ContactEmail,
			Subject:   "Membership Application Received",
			Template:  "purchase_created",
			Data:      data,
		}, true
	case payment.NoticePaymentSucceeded:
		data["InvoiceNumber"] = m.InvoiceNumber
		return payment.Notice{
			Recipient: m.ContactEmail,
			Subject:   "Membership Payment Received",
			Template:  "payment_succeeded",
			Data:      data,
		}, true
	default:
		return payment.Notice{}, false
	}
}

func label(t Type) string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}
