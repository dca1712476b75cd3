package injurysolution

import (
	"github.com/sportsclub/server/internal/module/payment"
)

// Purchase is a member's purchase of an injury exercise solution.
type Purchase struct {
	payment.Record

	SolutionTitle string `json:"solution_title" gorm:"not null"`
}

// TableName returns the database table name.
func (Purchase) TableName() string {
	return "injury_solution_purchases"
}
