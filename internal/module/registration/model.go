package registration

import (
	"strings"

	"github.com/sportsclub/server/internal/module/payment"
)

// Registration is an athlete's entry into a race.
type Registration struct {
	payment.Record

	RegistrationNumber string `json:"registration_number" gorm:"uniqueIndex;not null"`
	FirstName          string `json:"first_name" gorm:"not null"`
	LastName           string `json:"last_name" gorm:"not null"`
	RaceName           string `json:"race_name" gorm:"not null"`
	RaceEvent          string `json:"race_event" gorm:"not null"`
}

// TableName returns the database table name.
func (Registration) TableName() string {
	return "registrations"
}

// FullName returns the athlete's display name.
func (r *Registration) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}
