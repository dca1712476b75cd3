package trainingpackage

import (
	"github.com/sportsclub/server/internal/module/payment"
)

// DomainName identifies training package purchases to the payment engine.
const DomainName = "training_package"

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
	return []payment.LineItem{{Description: "Training package: " + p.PackageTitle, Amount: p.PriceDue}}
}

func (purchaseDomain) Notice(kind payment.NoticeKind, p *Purchase) (payment.Notice, bool) {
	switch kind {
	case payment.NoticePurchaseCreated:
		return payment.Notice{
			Recipient: p.ContactEmail,
			Subject:   "Training Package Purchase - " + p.PackageTitle,
			Template:  "purchase_created",
			Data:      map[string]any{"Item": p.PackageTitle, "Amount": p.PriceDue.StringFixed(2)},
		}, true
	case payment.NoticePaymentSucceeded:
		return payment.Notice{
			Recipient: p.ContactEmail,
			Subject:   "Payment Received - " + p.PackageTitle,
			Template:  "payment_succeeded",
			Data: map[string]any{
				"Item":          p.PackageTitle,
				"Amount":        p.PriceDue.StringFixed(2),
				"InvoiceNumber": p.InvoiceNumber,
			},
		}, true
	}
	return payment.Notice{}, false
}
