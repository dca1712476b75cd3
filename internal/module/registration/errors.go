package registration

import "errors"

// Module errors.
var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrNumberUnavailable    = errors.New("could not allocate a registration number")
)
