package coursebooking

import (
	"github.com/sportsclub/server/internal/module/payment"
)

// DomainName identifies course bookings to the payment engine.
const DomainName = "course_booking"

// Policy starts bookings pending and allows every status but created to be set by hand.
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

func (purchaseDomain) Payer(b *Booking) string {
	return b.ID.String() + "@athlete.com"
}

func (purchaseDomain) LineItems(b *Booking) []payment.LineItem {
	return []payment.LineItem{{Description: "Coaching course: " + b.CourseTitle, Amount: b.PriceDue}}
}

func (purchaseDomain) Notice(kind payment.NoticeKind, b *Booking) (payment.Notice, bool) {
	data := map[string]any{
		"Item":   b.CourseTitle,
		"Amount": b.PriceDue.StringFixed(2),
	}
	switch kind {
	case payment.NoticePurchaseCreated:
		return payment.Notice{
			Recipient: b.ContactEmail,
			Subject:   "Course Booking Confirmation - " + b.CourseTitle,
			Template:  "purchase_created",
			Data:      data,
		}, true
	case payment.NoticePaymentSucceeded:
		data["InvoiceNumber"] = b.InvoiceNumber
		return payment.Notice{
			Recipient: b.ContactEmail,
			Subject:   "Payment Received - " + b.CourseTitle,
			Template:  "payment_succeeded",
			Data:      data,
		}, true
	}
	return payment.Notice{}, false
}
