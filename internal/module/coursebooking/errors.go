package coursebooking

import "errors"

// Module errors.
var (
	ErrBookingNotFound   = errors.New("course booking not found")
	ErrInvalidAttendance = errors.New("attendance must be not_attended, attended or cancelled")
)
