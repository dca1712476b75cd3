package membership

import (
	"time"

	"github.com/google/uuid"

	"github.com/sportsclub/server/internal/module/payment"
)

// Type is the kind of club membership.
type Type string

const (
	TypeAthlete  Type = "athlete"
	TypeCoach    Type = "coach"
	TypeOfficial Type = "official"
)

// Valid reports whether t is a known membership type.
func (t Type) Valid() bool {
	switch t {
	case TypeAthlete, TypeCoach, TypeOfficial:
		return true
	}
	return false
}

// Status is the club-side standing of a membership, independent of payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusRejected  Status = "rejected"
	StatusGraduated Status = "graduated"
)

// Membership is a member's club membership.
type Membership struct {
	payment.Record

	MembershipType   Type       `json:"membership_type" gorm:"not null"`
	MembershipStatus Status     `json:"membership_status" gorm:"not null;default:pending"`
	ApprovedBy       *uuid.UUID `json:"approved_by,omitempty" gorm:"type:uuid"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	GraduationDate   *time.Time `json:"graduation_date,omitempty"`
	Remarks          string     `json:"remarks,omitempty"`
}

// TableName returns the database table name.
func (Membership) TableName() string {
	return "memberships"
}

// IsActive returns true if the membership has been approved and not ended.
func (m *Membership) IsActive() bool {
	return m.MembershipStatus == StatusActive
}
