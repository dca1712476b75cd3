package productorder

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/sportsclub/server/internal/module/payment"
)

// OrderStatus represents the fulfilment status of an order.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// PaymentOption is how the customer chose to pay.
type PaymentOption string

const (
	PaymentOptionPayNow   PaymentOption = "PayNow"
	PaymentOptionPayLater PaymentOption = "PayLater"
)

// DeliveryFeeDescription labels the delivery line on the invoice.
const DeliveryFeeDescription = "Delivery Fee"

// Item is a product snapshot taken when the order is placed.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

// Amount returns unit price times quantity.
func (i Item) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Description returns the invoice text for the item.
func (i Item) Description() string {
	var variant []string
	if i.Size != "" {
		variant = append(variant, i.Size)
	}
	if i.Color != "" {
		variant = append(variant, i.Color)
	}
	desc := i.Name
	if len(variant) > 0 {
		desc += " (" + strings.Join(variant, ", ") + ")"
	}
	if i.Quantity > 1 {
		desc += fmt.Sprintf(" x%d", i.Quantity)
	}
	return desc
}

// Order is a shop order.
type Order struct {
	payment.Record

	CustomerName    string                    `json:"customer_name" gorm:"not null"`
	Items           datatypes.JSONSlice[Item] `json:"items" gorm:"type:jsonb;not null"`
	NeedsDelivery   bool                      `json:"needs_delivery"`
	DeliveryFee     decimal.Decimal           `json:"delivery_fee" gorm:"type:numeric(12,2);not null;default:0"`
	ShippingAddress string                    `json:"shipping_address,omitempty"`
	OrderStatus     OrderStatus               `json:"order_status" gorm:"not null;default:Processing"`
	PaymentOption   PaymentOption             `json:"payment_option" gorm:"not null;default:PayNow"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "product_orders"
}

// ChargesDelivery reports whether a delivery fee line belongs on the invoice.
func (o *Order) ChargesDelivery() bool {
	return o.NeedsDelivery && o.DeliveryFee.IsPositive()
}

// LineItems returns one invoice entry per item plus the delivery fee.
func (o *Order) LineItems() []payment.LineItem {
	lines := make([]payment.LineItem, 0, len(o.Items)+1)
	for _, item := range o.Items {
		lines = append(lines, payment.LineItem{Description: item.Description(), Amount: item.Amount()})
	}
	if o.ChargesDelivery() {
		lines = append(lines, payment.LineItem{Description: DeliveryFeeDescription, Amount: o.DeliveryFee})
	}
	return lines
}

// Total returns the sum of all line items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.LineItems() {
		total = total.Add(line.Amount)
	}
	return total
}
