package productorder

import (
	"github.com/shopspring/decimal"

	"github.com/sportsclub/server/internal/utils/pagination"
)

// OrderItemRequest is one product line of a new order.
type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// CreateOrderRequest represents a request to place an order.
type CreateOrderRequest struct {
	CheckoutRef     string             `json:"checkout_ref" binding:"omitempty,max=64"`
	CustomerName    string             `json:"customer_name" binding:"required"`
	Email           string             `json:"email" binding:"omitempty,email"`
	Items           []OrderItemRequest `json:"items" binding:"required,dive"`
	NeedsDelivery   bool               `json:"needs_delivery"`
	DeliveryFee     decimal.Decimal    `json:"delivery_fee"`
	ShippingAddress string             `json:"shipping_address"`
	PaymentOption   string             `json:"payment_option" binding:"omitempty,oneof=PayNow PayLater"`
}

// UpdateOrderStatusRequest represents a fulfilment status update.
type UpdateOrderStatusRequest struct {
	OrderStatus string `json:"order_status" binding:"required,oneof=Processing Shipped Delivered Completed Cancelled"`
}

// OrderListResponse represents a page of orders.
type OrderListResponse struct {
	Orders     []*Order            `json:"orders"`
	Pagination pagination.PageInfo `json:"pagination"`
}
