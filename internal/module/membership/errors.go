package membership

import "errors"

// Module errors.
var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrInvalidType        = errors.New("invalid membership type")
	ErrFeeNotConfigured   = errors.New("no fee configured for membership type")
	ErrInvalidTransition  = errors.New("invalid membership status transition")
)
