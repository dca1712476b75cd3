package coursebooking

import (
	"github.com/sportsclub/server/internal/utils/pagination"
)

// CreateBookingRequest represents a request to book a coaching course.
type CreateBookingRequest struct {
	CourseID string `json:"course_id" binding:"required,uuid"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// UpdateAttendanceRequest represents an attendance update.
type UpdateAttendanceRequest struct {
	AttendanceStatus string `json:"attendance_status" binding:"required"`
}

// BookingListResponse represents a page of bookings.
type BookingListResponse struct {
	Bookings   []*Booking          `json:"bookings"`
	Pagination pagination.PageInfo `json:"pagination"`
}
