package payment

import (
	"errors"
	"fmt"
)

// Module errors.
var (
	ErrNotFound           = errors.New("purchase not found")
	ErrTargetNotFound     = errors.New("purchase target not found")
	ErrOwnerNotFound      = errors.New("purchase owner not found")
	ErrDuplicatePurchase  = errors.New("an active purchase already exists for this target")
	ErrAlreadyPaid        = errors.New("payment already completed")
	ErrPaymentCancelled   = errors.New("payment was cancelled")
	ErrInvalidAmount      = errors.New("price due must be positive")
	ErrAmountMismatch     = errors.New("invoice total does not match price due")
	ErrPhoneRequired      = errors.New("phone number is required")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")
	ErrGatewayTransport   = errors.New("payment gateway unavailable")
	ErrNoPollHandle       = errors.New("payment has not been initiated")
	ErrPollHandleMismatch = errors.New("poll url does not match the stored payment")
	ErrInvalidTransition  = errors.New("invalid payment status transition")
	ErrStatusNotAllowed   = errors.New("payment status cannot be set manually")
	ErrConcurrentUpdate   = errors.New("purchase was modified concurrently")
	ErrResourceBusy       = errors.New("purchase is being processed")
	ErrDomainNotFound     = errors.New("payment domain not registered")
)

// GatewayRejectedError carries the gateway's explanation for a declined push.
type GatewayRejectedError struct {
	Detail string
}

// Error implements the error interface.
func (e *GatewayRejectedError) Error() string {
	if e.Detail == "" {
		return ErrGatewayRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrGatewayRejected, e.Detail)
}

// Unwrap returns ErrGatewayRejected.
func (e *GatewayRejectedError) Unwrap() error {
	return ErrGatewayRejected
}

// ClientDetail exposes the gateway detail in HTTP error responses.
func (e *GatewayRejectedError) ClientDetail() string {
	return e.Detail
}

// transportError wraps err as a gateway transport failure unless it already is one.
func transportError(op string, err error) error {
	if errors.Is(err, ErrGatewayTransport) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrGatewayTransport, err)
}
