package registration

import (
	"github.com/sportsclub/server/internal/module/payment"
)

// DomainName identifies race registrations to the payment engine.
const DomainName = "registration"

// PayerDomain is appended to the registration number to form the payer id.
const PayerDomain = "@athlete.com"

// Policy starts registrations unpaid and limits manual updates to the
// statuses a race entry can hold.
var Policy = payment.Policy{
	Initial: payment.StatusUnpaid,
	Settable: []payment.Status{
		payment.StatusPaid,
		payment.StatusPending,
		payment.StatusFailed,
		payment.StatusUnpaid,
	},
}

type purchaseDomain struct{}

func (purchaseDomain) Name() string { return DomainName }

func (purchaseDomain) Policy() payment.Policy { return Policy }

func (purchaseDomain) Payer(r *Registration) string {
	return r.RegistrationNumber + PayerDomain
}

func (purchaseDomain) LineItems(r *Registration) []payment.LineItem {
	return []payment.LineItem{{Description: r.RaceEvent, Amount: r.PriceDue}}
}

func (purchaseDomain) Notice(kind payment.NoticeKind, r *Registration) (payment.Notice, bool) {
	data := map[string]any{
		"Name":               r.FullName(),
		"RegistrationNumber": r.RegistrationNumber,
		"RaceName":           r.RaceName,
		"RaceEvent":          r.RaceEvent,
		"Amount":             r.PriceDue.StringFixed(2),
	}

	switch kind {
	case payment.NoticePurchaseCreated:
		return payment.Notice{
			Recipient: r.ContactEmail,
			Subject:   "Race Registration Confirmation - " + r.RaceName,
			Template:  "registration_created",
			Data:      data,
		}, true
	case payment.NoticePaymentSucceeded:
		data["InvoiceNumber"] = r.InvoiceNumber
		return payment.Notice{
			Recipient: r.ContactEmail,
			Subject:   "Payment Received - " + r.RaceName,
			Template:  "payment_succeeded",
			Data:      data,
		}, true
	default:
		return payment.Notice{}, false
	}
}
