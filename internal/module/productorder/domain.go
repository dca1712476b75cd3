package productorder

import (
	"fmt"

	"github.com/sportsclub/server/internal/module/payment"
)

// DomainName identifies product orders to the payment engine.
const DomainName = "product_order"

// Policy starts orders pending and allows every status but created to be set by hand.
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

func (purchaseDomain) Payer(o *Order) string {
	return o.ID.String() + "@customer.com"
}

func (purchaseDomain) LineItems(o *Order) []payment.LineItem {
	return o.LineItems()
}

func (purchaseDomain) Notice(kind payment.NoticeKind, o *Order) (payment.Notice, bool) {
	data := map[string]any{
		"Name":   o.CustomerName,
		"Item":   summary(o),
		"Amount": o.PriceDue.StringFixed(2),
		"Lines":  o.LineItems(),
	}
	if o.NeedsDelivery {
		data["ShippingAddress"] = o.ShippingAddress
	}
	switch kind {
	case payment.NoticePurchaseCreated:
		return payment.Notice{
			Recipient: o.ContactEmail,
			Subject:   "Order Confirmed - #" + o.ID.String(),
			Template:  "purchase_created",
			Data:      data,
		}, true
	case payment.NoticePaymentSucceeded:
		data["InvoiceNumber"] = o.InvoiceNumber
		return payment.Notice{
			Recipient: o.ContactEmail,
			Subject:   "Payment Received - Order #" + o.ID.String(),
			Template:  "payment_succeeded",
			Data:      data,
		}, true
	}
	return payment.Notice{}, false
}

func summary(o *Order) string {
	if len(o.Items) == 1 {
		return o.Items[0].Description()
	}
	return fmt.Sprintf("Shop order with %d products", len(o.Items))
}
