package injurysolution

import (
	"github.com/sportsclub/server/internal/module/payment"
)

// DomainName identifies injury solution purchases to the payment engine.
const DomainName = "injury_solution"

// Policy starts purchases pending and allows every status but created to be set by hand.
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

func (purchaseDomain) Payer(p *Purchase) string { return p.ID.String() + "@athlete.com" }

func (purchaseDomain) LineItems(p *Purchase) []payment.LineItem {
	return []payment.LineItem{{Description: "Injury solution: " + p.SolutionTitle, Amount: p.PriceDue}}
}

func (purchaseDomain) Notice(kind payment.NoticeKind, p *Purchase) (payment.Notice, bool) {
	switch kind {
	case payment.NoticePurchaseCreated:
		return payment.Notice{
			Recipient: p.ContactEmail,
			Subject:   "Injury Solution Purchase - " + p.SolutionTitle,
			Template:  "purchase_created",
			Data:      map[string]any{"Item": p.SolutionTitle, "Amount": p.PriceDue.StringFixed(2)},
		}, true
	case payment.NoticePaymentSucceeded:
		return payment.Notice{
			Recipient: p.ContactEmail,
			Subject:   "Payment Received - " + p.SolutionTitle,
			Template:  "payment_succeeded",
			Data: map[string]any{
				"Item":          p.SolutionTitle,
				"Amount":        p.PriceDue.StringFixed(2),
				"InvoiceNumber": p.InvoiceNumber,
			},
		}, true
	}
	return payment.Notice{}, false
}
