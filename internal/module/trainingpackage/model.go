package trainingpackage

import (
	"github.com/sportsclub/server/internal/module/payment"
)

// Purchase is a member's purchase of a training program package.
type Purchase struct {
	payment.Record

	PackageTitle string `json:"package_title" gorm:"not null"`
}

// TableName returns the database table name.
func (Purchase) TableName() string {
	return "training_package_purchases"
}
