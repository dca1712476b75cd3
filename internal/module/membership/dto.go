package membership

import (
	"time"

	"github.com/sportsclub/server/internal/utils/pagination"
)

// CreateMembershipRequest represents a membership application.
type CreateMembershipRequest struct {
	MembershipType string `json:"membership_type" binding:"required,oneof=athlete coach official"`
	Email          string `json:"email" binding:"omitempty,email"`
}

// RejectMembershipRequest represents a rejection with the reason given to the member.
type RejectMembershipRequest struct {
	Remarks string `json:"remarks" binding:"required"`
}

// GraduateMembershipRequest represents a graduation. Date defaults to now.
type GraduateMembershipRequest struct {
	GraduationDate *time.Time `json:"graduation_date"`
}

// MembershipListResponse represents a page of memberships.
type MembershipListResponse struct {
	Memberships []*Membership       `json:"memberships"`
	Pagination  pagination.PageInfo `json:"pagination"`
}
