package productorder

import "errors"

// Module errors.
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrEmptyOrder         = errors.New("at least one product is required")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrOutOfStock         = errors.New("product is out of stock")
	ErrInvalidDeliveryFee = errors.New("delivery fee must not be negative")
	ErrAddressRequired    = errors.New("shipping address is required for delivery")
	ErrInvalidTransition  = errors.New("invalid order status transition")
)
