package coursebooking

import (
	"github.com/sportsclub/server/internal/module/payment"
)

// Attendance records whether the member attended the booked course.
type Attendance string

const (
	AttendanceNotAttended Attendance = "not_attended"
	AttendanceAttended    Attendance = "attended"
	AttendanceCancelled   Attendance = "cancelled"
)

// ParseAttendance normalizes an attendance value. "not attended" is accepted.
func ParseAttendance(s string) (Attendance, error) {
	switch a := Attendance(payment.NormalizeToken(s)); a {
	case AttendanceNotAttended, AttendanceAttended, AttendanceCancelled:
		return a, nil
	}
	return "", ErrInvalidAttendance
}

// Booking is a member's booking of a coaching course.
type Booking struct {
	payment.Record

	CourseTitle      string     `json:"course_title" gorm:"not null"`
	AttendanceStatus Attendance `json:"attendance_status" gorm:"not null;default:not_attended"`
}

// TableName returns the database table name.
func (Booking) TableName() string {
	return "course_bookings"
}
