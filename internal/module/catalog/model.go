package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Race is a race open for registration.
type Race struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Name              string          `json:"name" gorm:"not null"`
	Event             string          `json:"event" gorm:"not null"`
	RegistrationPrice decimal.Decimal `json:"registration_price" gorm:"type:numeric(12,2);not null"`
	RaceDate          *time.Time      `json:"race_date,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName returns the database table name.
func (Race) TableName() string {
	return "races"
}

// CoachingCourse is a bookable coaching course.
type CoachingCourse struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Title     string          `json:"title" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name.
func (CoachingCourse) TableName() string {
	return "coaching_courses"
}

// TrainingProgramPackage is a purchasable multi-week training program.
type TrainingProgramPackage struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Title     string          `json:"title" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name.
func (TrainingProgramPackage) TableName() string {
	return "training_program_packages"
}

// InjuryExerciseSolution is a purchasable injury rehabilitation plan.
type InjuryExerciseSolution struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Title     string          `json:"title" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name.
func (InjuryExerciseSolution) TableName() string {
	return "injury_exercise_solutions"
}

// Product is a shop product.
type Product struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string          `json:"name" gorm:"not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null;default:0"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName returns the database table name.
func (Product) TableName() string {
	return "products"
}

// InStock reports whether quantity units can be ordered.
func (p *Product) InStock(quantity int) bool {
	return quantity > 0 && p.StockQuantity >= quantity
}
