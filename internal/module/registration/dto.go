package registration

import (
	"github.com/sportsclub/server/internal/utils/pagination"
)

// CreateRegistrationRequest represents a request to register for a race.
type CreateRegistrationRequest struct {
	RaceID    string `json:"race_id" binding:"required,uuid"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	// Email receives the confirmation; defaults to the account email.
	Email string `json:"email" binding:"omitempty,email"`
}

// RegistrationListResponse represents a page of registrations.
type RegistrationListResponse struct {
	Registrations []*Registration      `json:"registrations"`
	Pagination    pagination.PageInfo `json:"pagination"`
}
